// Package integration combines circuit breaker and retry patterns for comprehensive
// fault tolerance in tilekeep's persistence writes and map loading.
//
// This package provides ResilientExecutor which layers retry logic on top of
// circuit breaker protection, giving operations the benefits of both mechanisms:
// automatic retries for transient failures and fast-fail for persistent outages.
//
// # Execution Flow
//
// The retrier is the outer layer and the circuit breaker the inner one. Each
// attempt runs as follows:
//
//  1. Circuit breaker checks if the operation should proceed
//  2. If circuit is open, the attempt fails with ErrCircuitBreakerOpen
//  3. If circuit allows, the operation executes and the circuit breaker
//     records success/failure for state management
//  4. On failure the retrier waits with exponential backoff and tries again
//     until MaxAttempts is reached or the context ends; an open-circuit
//     error is retried like any other error
//
// # Creating Executors
//
// Create a custom executor with specific configuration:
//
//	cbConfig := resilience.CircuitBreakerConfig{
//	    MaxFailures: 5,
//	    Timeout:     30 * time.Second,
//	}
//	retryConfig := retry.RetryConfig{
//	    MaxAttempts:  3,
//	    InitialDelay: 100 * time.Millisecond,
//	}
//	executor := integration.NewResilientExecutor(cbConfig, retryConfig)
//
// CreateCustomExecutor does the same and also sets the circuit breaker's
// name:
//
//	executor := integration.CreateCustomExecutor("my-service", cbConfig, retryConfig)
//
// # Executing Operations
//
// Wrap operations with combined protection:
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return callExternalAPI(ctx)
//	})
//
// # Pre-configured Executors
//
// Global executors for common operation types:
//
//	// File system operations
//	err := integration.ExecuteFileSystemOperation(ctx, operation)
//
//	// Network/WebSocket operations
//	err := integration.ExecuteNetworkOperation(ctx, operation)
//
//	// Configuration loading
//	err := integration.ExecuteConfigOperation(ctx, operation)
//
// # Ad-hoc Execution
//
// For one-off operations with custom options:
//
//	err := integration.ExecuteResilient(ctx, operation,
//	    integration.ConfigureRetry(retryConfig),
//	    integration.ConfigureCircuitBreaker(cbConfig),
//	)
//
// # Disabling Mechanisms
//
// Run with only one protection mechanism:
//
//	// Circuit breaker only, a single attempt with no retry
//	err := integration.WithRetryDisabled(cbConfig).Execute(ctx, operation)
//
//	// Retry only, behind a circuit breaker that effectively never opens
//	err := integration.WithCircuitBreakerDisabled(retryConfig).Execute(ctx, operation)
//
// # Statistics
//
// Query the circuit breaker's statistics:
//
//	stats := executor.GetStats()
//	// Circuit breaker name, state and counters, keys prefixed "circuit_breaker_"
//
// # Testing
//
// The predefined executors are package-level variables that keep their
// circuit breaker state for the life of the process; there is no reset
// function, so a test that needs a clean breaker assigns a fresh executor
// built with NewResilientExecutor.
package integration

// Package coordinator drives parallel agent invocations under bounded
// concurrency. A weighted semaphore is the sole admission control in front
// of the external AgentExecutor; each invocation gets per-attempt timeouts,
// exponential backoff retries, token accounting and compression metrics.
// One task's failure never cancels or blocks its siblings: a batch of N
// tasks always yields exactly N results.
package coordinator

// Package task provides a deferred result that can be settled directly or
// driven to completion by cooperative polling.
//
// A Task starts pending and settles exactly once, either fulfilled with a
// value or rejected with an error. Observers register callbacks with Then,
// Catch and Finally; callbacks registered after settlement run immediately.
// Wait drives a task by invoking its work function on a fixed interval until
// the work reports a result, fails, or a deadline passes.
//
// All and Race aggregate several tasks. All rejects on the first observed
// failure and abandons the remaining inputs: they are neither cancelled nor
// waited for.
package task

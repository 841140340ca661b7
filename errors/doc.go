/*
Package errors implements the error taxonomy used across feemill.

The idea is to reuse as many root errors from this package as possible
and define extension specific errors only when necessary. Extensions
register their own root errors with Register(code, description), using
a code range that does not collide with other packages (x/voting owns
1000-1019, x/auction 1020-1039, x/stream 1040-1059).

There is also support for stack traces. Ensure an error is created
using ErrXyz.New("...") or errors.Wrap(err, "...") at the point of
creation to attach a trace. When wrapping multiple times, only the
first wrap records the stack trace.

Use `ErrXyz.Is(err)` to test which kind a wrapped error belongs to.
*/
package errors

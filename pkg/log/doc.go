/*
Package log provides structured logging for waitmate using zerolog.

Init must be called once at startup with the desired Level, JSONOutput,
and Output before anything else in the process logs. The package-level
Logger is safe for concurrent use; WithWaiter, WithNotifier, and
WithCursor return child loggers carrying the name of the goroutine or
cursor they were derived for, so log lines from concurrently running
waiters and notifiers can be told apart.
*/
package log

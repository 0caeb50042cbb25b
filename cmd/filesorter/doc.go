// Command filesorter runs the file sorting daemon and controls it from the
// command line.
//
// The run command starts the daemon in the foreground. Status, pause, resume,
// history and rules sync talk to a running daemon over its local control API.
// Classify, organize, rules list, config and test-notify work directly against
// the configuration and state database and do not need the daemon.
package main

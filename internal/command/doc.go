// Package command drives the cloud's asynchronous command protocol.
//
// A mutating call (arm, enable motion, capture thumbnail) returns a command
// descriptor whose "complete" flag must be polled. The Coordinator polls it
// until completion, cancellation through the network's active-command
// marker, or timeout. On timeout it asks the service to stop the command.
// RunCommand additionally retries the action itself while the service
// answers that it is busy.
package command

// Package slack answers Slack [Events API] deliveries with a canned echo reply.
//
// A delivery reaches [Handler.Handle] either as an HTTP webhook body ([Webhook])
// or as a Socket Mode envelope payload ([SocketReceiver]); both produce the same
// decision and at most one chat.postMessage call through a [Poster].
//
// [Events API]: https://docs.slack.dev/apis/events-api
package slack

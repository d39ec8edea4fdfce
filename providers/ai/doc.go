// Package ai defines the provider-neutral chat types stageflow sends to a
// generation endpoint and the [StreamProvider] interface every backend
// implements.
//
// A request is a [ChatRequest] holding system and user [Message] values. A
// response is a [ChatStream]: a single-use iterator of text fragments that
// can also be drained with [ChatStream.Collect]. Errors that mean "the
// endpoint cannot be used at all" wrap one of the sentinels in errors.go and
// are recognized with [IsPreflight].
package ai

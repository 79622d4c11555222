package eventstream

import "errors"

// ErrNilAnswerEvent indicates a nil answer event payload was provided to a publisher.
var ErrNilAnswerEvent = errors.New("nil answer event")

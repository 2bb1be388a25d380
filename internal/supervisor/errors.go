package supervisor

import "errors"

// ErrVerifyFailed marks the one condition the tool surfaces as a non-zero
// exit: the relaunched process was not alive after the verify window.
var ErrVerifyFailed = errors.New("relaunched process not alive after verify window")

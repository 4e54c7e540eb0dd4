package encoder

import "errors"

var ErrNoAudio = errors.New("no audio captured")

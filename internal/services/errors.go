package services

import "errors"

var errNoImageData = errors.New("model returned no image data")

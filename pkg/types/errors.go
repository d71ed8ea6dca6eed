package types

import "errors"

var (
	// ErrTemplateLoad means the frame template could not be read or decoded
	ErrTemplateLoad = errors.New("template load failure")
	// ErrNoAlphaChannel means the template has no alpha channel to detect holes in
	ErrNoAlphaChannel = errors.New("template has no alpha channel")
	// ErrNoSlotsDetected means no transparent region survived the size filter
	ErrNoSlotsDetected = errors.New("no slots detected")
	// ErrUnknownFamily means the legacy table has no entry for a frame family
	ErrUnknownFamily = errors.New("unknown frame family")

	ErrPhotoLoad   = errors.New("photo load failure")
	ErrComposition = errors.New("composition failure")
	ErrEncoding    = errors.New("encoding failure")
)

// IsRecoverable reports whether err is a detection failure that the
// legacy coordinate table can stand in for.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrTemplateLoad) ||
		errors.Is(err, ErrNoAlphaChannel) ||
		errors.Is(err, ErrNoSlotsDetected)
}

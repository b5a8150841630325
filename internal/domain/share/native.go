package share

import "context"

// File is an attachment for the native share sheet.
type File struct {
	Name string
	MIME string
	Data []byte
}

// NativePayload is handed to the platform share sheet.
type NativePayload struct {
	Title string
	Text  string
	URL   string
	Files []File
}

// NativeSharer is the platform share sheet.
type NativeSharer interface {
	// CanShare reports whether p can be shared. It must not prompt the user.
	CanShare(p NativePayload) bool
	// Share returns ErrShareCancelled when the user dismisses the sheet.
	Share(ctx context.Context, p NativePayload) error
}

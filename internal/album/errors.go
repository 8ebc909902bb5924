package album

import "errors"

var (
	// ErrAlbumNotFound indicates the requested album does not exist for the account.
	ErrAlbumNotFound = errors.New("album not found")
	// ErrAlbumTitleExists is returned when an account attempts to create a duplicate album title.
	ErrAlbumTitleExists = errors.New("album title already exists")
)

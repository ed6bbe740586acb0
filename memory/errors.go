package memory

import "errors"

var (
	// ErrDocumentNotFound is returned by Load for a key with no document.
	ErrDocumentNotFound = errors.New("instruction document not found")
	// ErrInvalidKey is returned for keys outside the document namespace.
	ErrInvalidKey = errors.New("invalid document key")
	// ErrInvalidRoot is returned by NewStore when the document root is
	// unusable.
	ErrInvalidRoot = errors.New("invalid document root")
	// ErrUnsupportedDocument is returned by Save for a key whose extension
	// the store does not hold.
	ErrUnsupportedDocument = errors.New("unsupported document type")
	// ErrStoreIO wraps read and write failures of the backing storage.
	ErrStoreIO = errors.New("document store i/o")
)

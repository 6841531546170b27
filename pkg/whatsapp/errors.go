package whatsapp

import "errors"

var (
	ErrInstanceNotFound = errors.New("WhatsApp Instance is not Found")
	ErrClientNotValid   = errors.New("WhatsApp Client is not Valid")
	ErrNotRegistered    = errors.New("WhatsApp Personal ID is Not Registered")
	ErrGroupNotFound    = errors.New("WhatsApp Group is not Found")
	ErrDownloadFailed   = errors.New("WhatsApp Media Download is Failed")
	ErrQRLimitReached   = errors.New("WhatsApp QR Code Limit is Reached")
	ErrNoRecords        = errors.New("WhatsApp Message Records are not Found")
	ErrReactionInvalid  = errors.New("WhatsApp Reaction Emoji is not Valid")
)

package domain

const (
	TitleMinLength          = 2
	TitleMaxLength          = 200
	ContentMinLength        = 10
	ContentMaxLength        = 10000
	CustomerNameMaxLength   = 100
	CustomerEmailMaxLength  = 100
	CustomerPhoneMaxLength  = 20
	MemoMaxLength           = 2000
	MaxAttachmentsPerTicket = 5
	MaxAttachmentSizeBytes  = 10 * 1024 * 1024
	ChangeReasonMaxLength   = 500
)

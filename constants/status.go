package constants

// ScanStatus is the outcome of processing one label image.
type ScanStatus string

const (
	ScanStatusQueued    ScanStatus = "QUEUED"
	ScanStatusOCROK     ScanStatus = "OCR_OK"
	ScanStatusParsed    ScanStatus = "PARSED"    // record extracted and stored
	ScanStatusDuplicate ScanStatus = "DUPLICATE" // same image already stored for the owner
	ScanStatusFailed    ScanStatus = "FAILED"
)

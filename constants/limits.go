package constants

const (
	// MaxImageDimension bounds the longest side of a compressed essay image.
	MaxImageDimension = 1920
	// MaxImageBytes bounds the size of a compressed essay image.
	MaxImageBytes = 1 << 20
	// MaxIntakeBytes rejects absurd uploads before decoding.
	MaxIntakeBytes = 25 << 20

	// UnreadableTextPlaceholder replaces an empty OCR result.
	UnreadableTextPlaceholder = "[No readable text was found in this image. Please review the scan and complete this record manually.]"

	// MaxPromptEssayChars caps essay text sent to the grader and identifier.
	MaxPromptEssayChars = 12000
)

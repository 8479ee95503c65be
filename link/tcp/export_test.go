package tcp

// WriteFrameForTest and ReadFrameForTest expose the frame codec to
// link_test.go without making it part of the package's public API.
var (
	WriteFrameForTest = writeFrame
	ReadFrameForTest  = readFrame
)

package config

import "time"

// Collaborator names accepted in the configuration.
const (
	SourceTone = "tone" // Synthetic sine, no hardware needed
	SourceWAV  = "wav"  // 16-bit PCM file
	SourceMic  = "mic"  // PortAudio capture device

	DisplayTerminal  = "terminal"  // ANSI preview on stdout
	DisplayBMP       = "bmp"       // Snapshot file
	DisplayWebSocket = "websocket" // Raw frames to browser clients
	DisplayDiscard   = "discard"   // Render only

	ColorsAuto      = "auto"      // Detect from the environment
	ColorsTrueColor = "truecolor" // 24-bit
	ColorsANSI256   = "ansi256"   // 256 colours
	ColorsANSI      = "ansi"      // 16 colours
	ColorsNone      = "ascii"     // No colour
)

// Defaults for the host collaborators. Geometry, frame length and the palette are
// not configurable and live with the code that uses them.
const (
	DefaultLogLevel      = "info"
	DefaultEngine        = "fourier"
	DefaultSource        = SourceTone
	DefaultDeviceID      = MinDeviceID
	DefaultToneHz        = 1000.0
	DefaultToneAmplitude = 100.0 // Below the engine's int16 ceiling with no forward shift
	DefaultDisplay       = DisplayTerminal
	DefaultColors        = ColorsAuto
	DefaultWSAddress     = ":8080"
	DefaultBMPPath       = "frame.bmp"
	DefaultBMPEvery      = 30
	DefaultUDPTarget     = "127.0.0.1:9090"
	DefaultMetricsAddr   = ":9100"
	DefaultRecordingPath = "capture.wav"

	// Frame period for 512 left/right pairs at 38640 Hz, used to pace file
	// and tone sources like the microphone would.
	DefaultFramePeriod = 13250 * time.Microsecond

	// MinDeviceID selects the system default input device.
	MinDeviceID = -1
)

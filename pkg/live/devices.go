package live

// Microphone supplies little-endian s16 mono PCM at the capture rate. Read
// blocks until samples are available; it returns an error once the device is
// closed.
type Microphone interface {
	Read(p []byte) (int, error)
	Close() error
}

// Speaker consumes little-endian s16 mono PCM at the playback rate. Write
// queues audio for playback; Flush discards everything queued and not yet
// played.
type Speaker interface {
	Write(p []byte) (int, error)
	Flush()
	Close() error
}

package disc

import "fmt"

const (
	framesPerSecond  = 75
	secondsPerMinute = 60
	// msfOffset is the two second pregap that precedes LBA 0.
	msfOffset = 2 * framesPerSecond
)

// MSF is a minutes/seconds/frames address as used by raw CD reads.
type MSF struct {
	Minute uint8
	Second uint8
	Frame  uint8
}

// LBAToMSF converts a logical block address to its absolute MSF form.
func LBAToMSF(lba uint32) MSF {
	abs := lba + msfOffset
	return MSF{
		Minute: uint8(abs / (secondsPerMinute * framesPerSecond)),
		Second: uint8((abs / framesPerSecond) % secondsPerMinute),
		Frame:  uint8(abs % framesPerSecond),
	}
}

// LBA converts the address back to a logical block address. Addresses inside
// the pregap clamp to zero.
func (m MSF) LBA() uint32 {
	abs := (uint32(m.Minute)*secondsPerMinute+uint32(m.Second))*framesPerSecond + uint32(m.Frame)
	if abs < msfOffset {
		return 0
	}
	return abs - msfOffset
}

// String formats the address as mm:ss:ff.
func (m MSF) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", m.Minute, m.Second, m.Frame)
}

// RawFrame is the fixed-size buffer exchanged with the drive for a raw read.
// Before the request its first bytes carry the encoded start address; after
// it the whole buffer holds the frame.
type RawFrame [RawSectorSize]byte

// encodeMSF writes the request address into the leading bytes of the frame
// in the layout the raw read request expects: start minute, second, frame.
func (f *RawFrame) encodeMSF(m MSF) {
	f[0] = m.Minute
	f[1] = m.Second
	f[2] = m.Frame
}

// Address decodes the request address stored in the leading bytes.
func (f *RawFrame) Address() MSF {
	return MSF{Minute: f[0], Second: f[1], Frame: f[2]}
}

package adc

// Oversampler reads all channels sampleCount times and reports the mean.
type Oversampler struct {
	reader      ChannelReader
	sampleCount uint8
}

// NewOversampler returns an Oversampler over reader.
func NewOversampler(reader ChannelReader, sampleCount uint8) (*Oversampler, error) {
	if reader == nil {
		return nil, ErrNoBackend
	}
	if sampleCount == 0 {
		return nil, ErrInvalidSampleCount
	}
	return &Oversampler{reader: reader, sampleCount: sampleCount}, nil
}

// SampleCount returns the number of passes per collect.
func (o *Oversampler) SampleCount() uint8 {
	return o.sampleCount
}

// Collect implements Sampler. Channels are read round-robin so that every
// channel sees the same spread of conversion times.
func (o *Oversampler) Collect() ([ChannelCount]uint16, error) {
	var sums [ChannelCount]uint32
	var out [ChannelCount]uint16

	for i := uint8(0); i < o.sampleCount; i++ {
		for ch := uint8(0); ch < ChannelCount; ch++ {
			v, err := o.reader.ReadChannel(ch)
			if err != nil {
				return out, ErrBusFault
			}
			sums[ch] += uint32(v)
		}
	}

	for ch := range sums {
		out[ch] = uint16(sums[ch] / uint32(o.sampleCount))
	}
	return out, nil
}

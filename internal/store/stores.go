package store

import "errors"

// Stores is the top-level container for the two storage backends.
type Stores struct {
	Channels ChannelStore
	Tasks    TaskStore
}

// Close closes both backends and joins their errors.
func (s *Stores) Close() error {
	var errs []error
	if s.Channels != nil {
		if err := s.Channels.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Tasks != nil {
		if err := s.Tasks.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

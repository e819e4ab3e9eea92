package partition

import "errors"

var (
	ErrStoreSealed    = errors.New("bounded store already sealed")
	ErrStoreNotSealed = errors.New("bounded store not sealed yet")
	ErrStoreClosed    = errors.New("bounded store closed")

	ErrReaderClosed = errors.New("bounded reader closed")
	ErrViewReleased = errors.New("subpartition view released")

	// ErrCorruptFrame marks a short read before the declared frame length
	// was filled. This is a corruption-class failure, never retried and
	// never conflated with "not yet available".
	ErrCorruptFrame = errors.New("corrupt frame: short read")

	ErrFrameTooLarge   = errors.New("frame larger than segment capacity")
	ErrScratchRequired = errors.New("scratch segment required to materialize a file region")

	ErrNotAnEvent           = errors.New("data type is not an event")
	ErrSubpartitionFinished = errors.New("subpartition already finished")
	ErrSubpartitionReleased = errors.New("subpartition released")
	ErrViewAlreadyCreated   = errors.New("subpartition view already created")
)

package blockio

import (
	"fmt"
	"os"
	"runtime"

	"github.com/ephilipz/blocktree/platformio"
)

// DiskCache is a real, file-backed Cache: the file is mmap'd in doubling
// chunks the way the teacher's KV.extendMmap does, and every ReadBlock /
// WriteBlock is a plain memory copy into or out of the mapped region.
type DiskCache struct {
	file      *os.File
	blockSize int
	numBlocks uint64

	totalSize int
	chunks    [][]byte
}

// OpenDiskCache opens (creating if necessary) path as a numBlocks-block
// store of blockSize bytes each, growing the file to fit if it is smaller.
func OpenDiskCache(path string, blockSize int, numBlocks uint64) (*DiskCache, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("blockio: open %s: %w", path, err)
	}

	want := int64(blockSize) * int64(numBlocks)
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("blockio: stat %s: %w", path, err)
	}
	if info.Size() < want {
		if err := f.Truncate(want); err != nil {
			f.Close()
			return nil, fmt.Errorf("blockio: truncate %s: %w", path, err)
		}
	}

	c := &DiskCache{file: f, blockSize: blockSize, numBlocks: numBlocks}
	if err := c.mapInitial(); err != nil {
		f.Close()
		return nil, err
	}
	return c, nil
}

// initialMapSize is the starting size the teacher's mmapInit uses before
// doubling; the file is truncated to its full size up front, but at most
// this much of it is mapped eagerly. region() calls extend for anything
// beyond it.
const initialMapSize = 64 << 20

func (c *DiskCache) mapInitial() error {
	size := int64(initialMapSize)
	if fileSize := int64(c.blockSize) * int64(c.numBlocks); size > fileSize {
		size = fileSize
	}
	chunk, err := platformio.Mmap(int(c.file.Fd()), 0, int(size))
	if err != nil {
		return fmt.Errorf("blockio: mmap: %w", err)
	}
	c.totalSize = int(size)
	c.chunks = [][]byte{chunk}
	return nil
}

// extend doubles the mapped address space the way KV.extendMmap does,
// mapping the overflow range separately rather than remapping in place.
func (c *DiskCache) extend(needed int) error {
	if c.totalSize >= needed {
		return nil
	}
	chunk, err := platformio.Mmap(int(c.file.Fd()), int64(c.totalSize), c.totalSize)
	if err != nil {
		return fmt.Errorf("blockio: extend mmap: %w", err)
	}
	c.totalSize <<= 1
	c.chunks = append(c.chunks, chunk)
	return c.extend(needed)
}

func (c *DiskCache) region(index uint64) ([]byte, error) {
	if index >= c.numBlocks {
		return nil, ErrBadBlock
	}
	needed := int(index+1) * c.blockSize
	if needed > c.totalSize {
		if err := c.extend(needed); err != nil {
			return nil, err
		}
	}
	var start uint64
	for _, chunk := range c.chunks {
		blocksInChunk := uint64(len(chunk)) / uint64(c.blockSize)
		if index < start+blocksInChunk {
			off := int(index-start) * c.blockSize
			return chunk[off : off+c.blockSize], nil
		}
		start += blocksInChunk
	}
	return nil, ErrBadBlock
}

// ReadBlock implements Cache.
func (c *DiskCache) ReadBlock(index uint64, buf []byte) error {
	region, err := c.region(index)
	if err != nil {
		return err
	}
	copy(buf, region)
	return nil
}

// WriteBlock implements Cache.
func (c *DiskCache) WriteBlock(index uint64, buf []byte) error {
	region, err := c.region(index)
	if err != nil {
		return err
	}
	copy(region, buf)
	return nil
}

// NumBlocks implements Cache.
func (c *DiskCache) NumBlocks() uint64 { return c.numBlocks }

// BlockSize implements Cache.
func (c *DiskCache) BlockSize() int { return c.blockSize }

// NotifyAllocate implements Cache. DiskCache has nothing to do beyond what
// the mmap region already reflects; the hook exists for callers (metrics,
// logging) layered on top.
func (c *DiskCache) NotifyAllocate(index uint64) {}

// NotifyDeallocate implements Cache, see NotifyAllocate.
func (c *DiskCache) NotifyDeallocate(index uint64) {}

// Close unmaps every chunk and closes the backing file.
func (c *DiskCache) Close() error {
	for _, chunk := range c.chunks {
		if err := platformio.Munmap(chunk); err != nil {
			return err
		}
	}
	runtime.KeepAlive(c)
	return c.file.Close()
}

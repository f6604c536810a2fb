package fs

import (
	"errors"
	"fmt"

	"github.com/weberc2/extentfs/pkg/math"
	. "github.com/weberc2/extentfs/pkg/types"
)

type checker struct {
	fs       *FileSystem
	problems []error
	reached  map[Ino]struct{}
	claims   map[Block]Ino
}

func (c *checker) report(format string, args ...interface{}) {
	c.problems = append(
		c.problems,
		fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), CorruptErr),
	)
}

// Check walks the tree from the root and cross-checks it against the
// bitmaps and free counts. It returns nil for a consistent volume; otherwise
// every problem it found, each matching `CorruptErr`.
func (fs *FileSystem) Check() error {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if err := fs.checkOpen("checking"); err != nil {
		return err
	}
	c := checker{
		fs:      fs,
		reached: make(map[Ino]struct{}),
		claims:  make(map[Block]Ino),
	}
	c.walk("/", InoRoot)
	c.counts()
	c.leaks()
	if len(c.problems) > 0 {
		fs.logger.Warn("check found problems", "count", len(c.problems))
	}
	return errors.Join(c.problems...)
}

func (c *checker) walk(path string, ino Ino) {
	if _, seen := c.reached[ino]; seen {
		c.report("`%s`: inode `%d` is linked more than once", path, ino)
		return
	}
	c.reached[ino] = struct{}{}

	node, err := c.fs.acquire(ino)
	if err != nil {
		c.report("`%s`: inode `%d`: %v", path, ino, err)
		return
	}
	defer c.fs.release(node)

	switch node.FileType() {
	case FileTypeRegular:
		ix, err := c.fs.extentIndex(node)
		if err != nil {
			c.report("`%s`: %v", path, err)
			return
		}
		c.claim(path, ino, node.Block)
		for _, e := range ix.Physical() {
			for i := Block(0); i < e.Len; i++ {
				c.claim(path, ino, e.Physical+i)
			}
		}
		if wanted := 1 + uint32(ix.Blocks()); node.Blocks != wanted {
			c.report(
				"`%s`: block count: wanted `%d`; found `%d`",
				path,
				wanted,
				node.Blocks,
			)
		}
		limit := Block(math.DivRoundUp(node.Size, BlockSize))
		for _, e := range ix.Physical() {
			if e.End() > limit {
				c.report(
					"`%s`: extent at logical block `%d` runs past the size `%d`",
					path,
					e.Logical,
					node.Size,
				)
			}
		}
	case FileTypeDir:
		table, err := c.fs.dirTable(node)
		if err != nil {
			c.report("`%s`: %v", path, err)
			return
		}
		c.claim(path, ino, node.Block)
		if node.Blocks != 1 {
			c.report("`%s`: block count: wanted `1`; found `%d`", path, node.Blocks)
		}
		for _, entry := range table.Entries() {
			c.walk(joinPath(path, entry.Name), entry.Ino)
		}
	case FileTypeSymlink:
		if node.Size > InlineDataSize {
			c.report("`%s`: symlink size `%d`", path, node.Size)
		}
	default:
		c.report("`%s`: unsupported mode `%s`", path, node.Mode)
	}
}

func (c *checker) claim(path string, ino Ino, block Block) {
	v := c.fs.volume
	switch {
	case block < v.FirstDataBlock() || block >= v.BlockCount:
		c.report("`%s`: block `%d` outside the data region", path, block)
		return
	case !v.IsBlockAllocated(block):
		c.report("`%s`: block `%d` is referenced but free", path, block)
	}
	if owner, claimed := c.claims[block]; claimed {
		c.report(
			"`%s`: block `%d` is also referenced by inode `%d`",
			path,
			block,
			owner,
		)
		return
	}
	c.claims[block] = ino
}

func (c *checker) counts() {
	v := c.fs.volume
	if used, wanted := v.Inodes.Used(), v.InodeCount-v.FreeInodes; used != wanted {
		c.report("inode bitmap: wanted `%d` set bits; found `%d`", wanted, used)
	}
	if used, wanted := v.Blocks.Used(), uint32(v.BlockCount)-v.FreeBlocks; used != wanted {
		c.report("block bitmap: wanted `%d` set bits; found `%d`", wanted, used)
	}
}

func (c *checker) leaks() {
	v := c.fs.volume
	for ino := Ino(1); uint32(ino) < v.InodeCount; ino++ {
		if _, reached := c.reached[ino]; !reached && v.IsInodeAllocated(ino) {
			c.report("inode `%d` is allocated but unreachable", ino)
		}
	}
	for block := v.FirstDataBlock(); block < v.BlockCount; block++ {
		if _, claimed := c.claims[block]; !claimed && v.IsBlockAllocated(block) {
			c.report("block `%d` is allocated but unreferenced", block)
		}
	}
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

package fs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/weberc2/extentfs/pkg/directory"
	"github.com/weberc2/extentfs/pkg/encode"
	extentio "github.com/weberc2/extentfs/pkg/io"
	"github.com/weberc2/extentfs/pkg/log"
	. "github.com/weberc2/extentfs/pkg/types"
)

// recordingDevice records the block number of every write.
type recordingDevice struct {
	*extentio.Buffer
	writes []Block
}

func (device *recordingDevice) WriteBlock(block Block, p []byte) error {
	device.writes = append(device.writes, block)
	return device.Buffer.WriteBlock(block, p)
}

func testOptions() *Options {
	return &Options{
		Logger: log.Discard(),
		Now:    func() time.Time { return time.Unix(1700000000, 0) },
	}
}

func mount(t *testing.T, device extentio.Device) *FileSystem {
	t.Helper()
	fs, err := Mount(device, testOptions())
	if err != nil {
		t.Fatalf("mounting: unexpected err: %v", err)
	}
	return fs
}

func newFileSystem(t *testing.T, blocks Block) (*extentio.Buffer, *FileSystem) {
	t.Helper()
	device := extentio.NewBuffer(blocks)
	if err := Format(device, testOptions()); err != nil {
		t.Fatalf("formatting: unexpected err: %v", err)
	}
	return device, mount(t, device)
}

func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + i/4096)
	}
	return data
}

func statfs(t *testing.T, fs *FileSystem) Statfs {
	t.Helper()
	found, err := fs.Statfs()
	if err != nil {
		t.Fatalf("statfs: unexpected err: %v", err)
	}
	return found
}

func check(t *testing.T, fs *FileSystem) {
	t.Helper()
	if err := fs.Check(); err != nil {
		t.Fatalf("check: unexpected err: %v", err)
	}
}

func TestFormatMount(t *testing.T) {
	_, fs := newFileSystem(t, 1024)
	found := statfs(t, fs)
	wanted := Statfs{
		Magic:      SuperblockMagic,
		BlockSize:  BlockSize,
		Blocks:     1024,
		FreeBlocks: 1001,
		Files:      1,
		FreeInodes: 1063,
		NameLen:    FileNameLen,
		InodeCount: 1064,
		FirstBlock: 22,
	}
	found.CachedNodes = 0
	if found != wanted {
		t.Fatalf("wanted `%+v`; found `%+v`", wanted, found)
	}

	root, err := fs.Stat(InoRoot)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if root.FileType != FileTypeDir || root.LinksCount != 2 ||
		root.Size != BlockSize || root.Perm != 0o755 {
		t.Fatalf("unexpected root: %+v", root)
	}
	check(t, fs)
}

func TestWriteSyncRemount(t *testing.T) {
	device, fs := newFileSystem(t, 1024)
	before := statfs(t, fs).FreeBlocks

	data := pattern(5000)
	ino, err := fs.Create(InoRoot, "a.txt", FileTypeRegular)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if n, err := fs.Write(ino, 0, data); err != nil || n != len(data) {
		t.Fatalf("wanted `%d` bytes written; found `%d` (err: %v)", len(data), n, err)
	}
	if err := fs.Unmount(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	fs = mount(t, device)
	found, err := fs.ReadFile("/a.txt")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !bytes.Equal(found, data) {
		t.Fatalf("wanted the written bytes back; found `%d` bytes", len(found))
	}
	if after := statfs(t, fs).FreeBlocks; after != before-3 {
		t.Fatalf("wanted `%d` free blocks; found `%d`", before-3, after)
	}

	stat, err := fs.Stat(ino)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if stat.Size != 5000 || stat.Blocks != 3 || stat.LinksCount != 1 {
		t.Fatalf("unexpected stat: %+v", stat)
	}
	check(t, fs)
}

func TestSync_Idempotent(t *testing.T) {
	device := &recordingDevice{Buffer: extentio.NewBuffer(64)}
	if err := Format(device, testOptions()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	fs := mount(t, device)
	if _, err := fs.WriteFile("/x", []byte("hello")); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := fs.Sync(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	snapshot := append([]byte(nil), device.Bytes()...)
	device.writes = nil
	if err := fs.Sync(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(device.writes) != 0 {
		t.Fatalf("wanted no writes on a clean sync; found `%v`", device.writes)
	}
	if !bytes.Equal(snapshot, device.Bytes()) {
		t.Fatal("wanted the device unchanged by a clean sync")
	}
}

func TestMount_BadMagic(t *testing.T) {
	device := &recordingDevice{Buffer: extentio.NewBuffer(64)}
	if err := Format(device, testOptions()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	device.Bytes()[0] ^= 0xff
	device.writes = nil

	if _, err := Mount(device, testOptions()); !errors.Is(err, CorruptErr) {
		t.Fatalf("wanted `%v`; found `%v`", CorruptErr, err)
	}
	if len(device.writes) != 0 {
		t.Fatalf("wanted no writes; found `%v`", device.writes)
	}
}

func TestMount_RootNotDir(t *testing.T) {
	device, fs := newFileSystem(t, 64)
	if err := fs.Unmount(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	slot := (*[InodeSize]byte)(device.Bytes()[BlockSize : BlockSize+InodeSize])
	var root Inode
	if err := encode.DecodeInode(&root, slot); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	root.Mode = NewMode(FileTypeRegular, 0o644)
	encode.EncodeInode(&root, slot)

	if _, err := Mount(device, testOptions()); !errors.Is(err, CorruptErr) {
		t.Fatalf("wanted `%v`; found `%v`", CorruptErr, err)
	}
}

func TestCreate(t *testing.T) {
	_, fs := newFileSystem(t, 64)
	dir, err := fs.Create(InoRoot, "dir", FileTypeDir)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	file, err := fs.Create(InoRoot, "file", FileTypeRegular)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	for _, testCase := range []struct {
		name      string
		parent    Ino
		entry     string
		fileType  FileType
		wantedErr error
	}{
		{"exists", InoRoot, "dir", FileTypeRegular, AlreadyExistsErr},
		{"parent-not-dir", file, "x", FileTypeRegular, NotDirErr},
		{"parent-missing", 40, "x", FileTypeRegular, NotFoundErr},
		{"empty-name", InoRoot, "", FileTypeRegular, InvalidArgumentErr},
		{"slash", InoRoot, "a/b", FileTypeRegular, InvalidArgumentErr},
		{"dot", dir, ".", FileTypeDir, InvalidArgumentErr},
		{
			"name-too-long",
			InoRoot,
			"abcdefghijklmnopqrstuvwxyz0123",
			FileTypeRegular,
			InvalidArgumentErr,
		},
		{"unsupported-type", InoRoot, "fifo", FileTypeFifo, InvalidArgumentErr},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			before := statfs(t, fs)
			_, err := fs.Create(testCase.parent, testCase.entry, testCase.fileType)
			if !errors.Is(err, testCase.wantedErr) {
				t.Fatalf("wanted `%v`; found `%v`", testCase.wantedErr, err)
			}
			after := statfs(t, fs)
			if after.FreeBlocks != before.FreeBlocks ||
				after.FreeInodes != before.FreeInodes {
				t.Fatalf(
					"wanted free counts unchanged `%d/%d`; found `%d/%d`",
					before.FreeBlocks,
					before.FreeInodes,
					after.FreeBlocks,
					after.FreeInodes,
				)
			}
		})
	}

	root, err := fs.Stat(InoRoot)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if root.LinksCount != 3 {
		t.Fatalf("wanted root nlink `3`; found `%d`", root.LinksCount)
	}
	check(t, fs)
}

func TestCreate_DirFull(t *testing.T) {
	_, fs := newFileSystem(t, 1024)
	for i := 0; i < MaxSubfiles; i++ {
		if _, err := fs.Create(
			InoRoot,
			fmt.Sprintf("f%d", i),
			FileTypeRegular,
		); err != nil {
			t.Fatalf("creating file `%d`: unexpected err: %v", i, err)
		}
	}
	before := statfs(t, fs)
	_, err := fs.Create(InoRoot, "one-too-many", FileTypeRegular)
	if !errors.Is(err, DirFullErr) {
		t.Fatalf("wanted `%v`; found `%v`", DirFullErr, err)
	}
	if after := statfs(t, fs); after.FreeInodes != before.FreeInodes {
		t.Fatalf("wanted `%d` free inodes; found `%d`", before.FreeInodes, after.FreeInodes)
	}
	check(t, fs)
}

func TestCreate_RollbackOnExhaustedBlocks(t *testing.T) {
	// six blocks leave exactly one free data block after the root's
	_, fs := newFileSystem(t, 6)
	if _, err := fs.Create(InoRoot, "a", FileTypeRegular); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	before := statfs(t, fs)
	if before.FreeBlocks != 0 {
		t.Fatalf("wanted `0` free blocks; found `%d`", before.FreeBlocks)
	}

	if _, err := fs.Create(InoRoot, "b", FileTypeRegular); !errors.Is(err, ExhaustedErr) {
		t.Fatalf("wanted `%v`; found `%v`", ExhaustedErr, err)
	}
	if after := statfs(t, fs); after.FreeInodes != before.FreeInodes {
		t.Fatalf("wanted `%d` free inodes; found `%d`", before.FreeInodes, after.FreeInodes)
	}
	if _, err := fs.Lookup(InoRoot, "b"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("wanted `%v`; found `%v`", NotFoundErr, err)
	}
	check(t, fs)
}

func TestCreate_ExhaustedInodes(t *testing.T) {
	// 56 inodes, one of which is the root
	_, fs := newFileSystem(t, 6)
	for i := 0; i < 55; i++ {
		if _, err := fs.Symlink(InoRoot, fmt.Sprintf("l%d", i), "t"); err != nil {
			t.Fatalf("creating link `%d`: unexpected err: %v", i, err)
		}
	}
	if _, err := fs.Symlink(InoRoot, "last", "t"); !errors.Is(err, ExhaustedErr) {
		t.Fatalf("wanted `%v`; found `%v`", ExhaustedErr, err)
	}
	if free := statfs(t, fs).FreeInodes; free != 0 {
		t.Fatalf("wanted `0` free inodes; found `%d`", free)
	}
	check(t, fs)
}

func TestReadWrite(t *testing.T) {
	for _, testCase := range []struct {
		name   string
		offset Byte
		size   int
	}{
		{"empty", 0, 0},
		{"small", 0, 10},
		{"one-block", 0, int(BlockSize)},
		{"unaligned", 100, 10000},
		{"straddle", BlockSize - 1, 2},
		{"many-extents", 0, int(20 * BlockSize)},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			_, fs := newFileSystem(t, 256)
			ino, err := fs.Create(InoRoot, "f", FileTypeRegular)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			// fill the file up to the offset so nothing reads a hole
			if testCase.offset > 0 {
				if _, err := fs.Write(ino, 0, make([]byte, testCase.offset)); err != nil {
					t.Fatalf("unexpected err: %v", err)
				}
			}
			data := pattern(testCase.size)
			if n, err := fs.Write(ino, testCase.offset, data); err != nil || n != len(data) {
				t.Fatalf("wanted `%d` bytes written; found `%d` (err: %v)", len(data), n, err)
			}

			found := make([]byte, len(data)+10)
			n, err := fs.Read(ino, testCase.offset, found)
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if n != len(data) {
				t.Fatalf("wanted `%d` bytes read; found `%d`", len(data), n)
			}
			if !bytes.Equal(found[:n], data) {
				t.Fatal("wanted the written bytes back")
			}
			check(t, fs)
		})
	}
}

func TestReadWrite_MaxFileSize(t *testing.T) {
	_, fs := newFileSystem(t, 4096)
	ino, err := fs.Create(InoRoot, "big", FileTypeRegular)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	data := pattern(int(MaxFileSize))
	if n, err := fs.Write(ino, 0, data); err != nil || n != len(data) {
		t.Fatalf("wanted `%d` bytes written; found `%d` (err: %v)", len(data), n, err)
	}
	found, err := fs.ReadAll(ino)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !bytes.Equal(found, data) {
		t.Fatal("wanted the written bytes back")
	}
	before := statfs(t, fs).FreeBlocks
	for _, offset := range []Byte{
		MaxFileSize,
		MaxFileSize + 1,
		math.MaxInt64 - 5,
		-1,
	} {
		if _, err := fs.Write(ino, offset, []byte{1}); !errors.Is(err, InvalidArgumentErr) {
			t.Fatalf("offset `%d`: wanted `%v`; found `%v`", offset, InvalidArgumentErr, err)
		}
	}

	// an offset near the top of the range must not wrap past the bound
	f, err := fs.Open(ino)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	defer f.Close()
	n, err := f.WriteAt(make([]byte, 10), math.MaxInt64-5)
	if n != 0 || !errors.Is(err, InvalidArgumentErr) {
		t.Fatalf("wanted `0, %v`; found `%d, %v`", InvalidArgumentErr, n, err)
	}
	if after := statfs(t, fs).FreeBlocks; after != before {
		t.Fatalf("wanted `%d` free blocks; found `%d`", before, after)
	}
	if stat, _ := f.Stat(); stat.Size != MaxFileSize {
		t.Fatalf("wanted size `%d`; found `%d`", MaxFileSize, stat.Size)
	}
	check(t, fs)
}

func TestWrite_IndexFull(t *testing.T) {
	_, fs := newFileSystem(t, 4096)
	ino, err := fs.Create(InoRoot, "sparse", FileTypeRegular)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// every other block, so each write needs its own extent
	for i := 0; i < MaxExtents; i++ {
		if _, err := fs.Write(ino, Byte(2*i)*BlockSize, []byte{1}); err != nil {
			t.Fatalf("writing extent `%d`: unexpected err: %v", i, err)
		}
	}
	_, err = fs.Write(ino, Byte(2*MaxExtents)*BlockSize, []byte{1})
	if !errors.Is(err, IndexFullErr) {
		t.Fatalf("wanted `%v`; found `%v`", IndexFullErr, err)
	}
	check(t, fs)
}

func TestRead_Errors(t *testing.T) {
	_, fs := newFileSystem(t, 64)
	file, err := fs.Create(InoRoot, "f", FileTypeRegular)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := fs.Write(file, 2*BlockSize, []byte("tail")); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	link, err := fs.Symlink(InoRoot, "l", "f")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	for _, testCase := range []struct {
		name      string
		ino       Ino
		offset    Byte
		wantedErr error
	}{
		{"hole", file, 0, HoleReadErr},
		{"past-end", file, 2*BlockSize + 5, InvalidArgumentErr},
		{"negative", file, -1, InvalidArgumentErr},
		{"dir", InoRoot, 0, IsDirErr},
		{"symlink", link, 0, InvalidArgumentErr},
		{"unallocated", 50, 0, NotFoundErr},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := fs.Read(testCase.ino, testCase.offset, make([]byte, 10))
			if !errors.Is(err, testCase.wantedErr) {
				t.Fatalf("wanted `%v`; found `%v`", testCase.wantedErr, err)
			}
		})
	}

	p := make([]byte, 10)
	n, err := fs.Read(file, 2*BlockSize, p)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if string(p[:n]) != "tail" {
		t.Fatalf("wanted `tail`; found `%s`", p[:n])
	}
	if n, err := fs.Read(file, 2*BlockSize+4, p); err != nil || n != 0 {
		t.Fatalf("wanted `0` bytes at the end; found `%d` (err: %v)", n, err)
	}
}

func TestTruncate(t *testing.T) {
	_, fs := newFileSystem(t, 64)
	ino, err := fs.Create(InoRoot, "f", FileTypeRegular)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := fs.Write(ino, 0, pattern(5000)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	before := statfs(t, fs).FreeBlocks

	if err := fs.Truncate(ino, 100); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if after := statfs(t, fs).FreeBlocks; after != before+1 {
		t.Fatalf("wanted `%d` free blocks; found `%d`", before+1, after)
	}
	stat, err := fs.Stat(ino)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if stat.Size != 100 || stat.Blocks != 2 {
		t.Fatalf("wanted size `100` and `2` blocks; found `%d` and `%d`", stat.Size, stat.Blocks)
	}

	// growing leaves a hole after the first block, whose tail reads zeros
	if err := fs.Truncate(ino, 5000); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	p := make([]byte, BlockSize)
	if _, err := fs.Read(ino, 0, p); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !bytes.Equal(p[:100], pattern(100)) {
		t.Fatal("wanted the first 100 bytes kept")
	}
	if !bytes.Equal(p[100:], make([]byte, BlockSize-100)) {
		t.Fatal("wanted zeros past the old end")
	}
	if _, err := fs.Read(ino, BlockSize, p); !errors.Is(err, HoleReadErr) {
		t.Fatalf("wanted `%v`; found `%v`", HoleReadErr, err)
	}

	if err := fs.Truncate(ino, 0); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if after := statfs(t, fs).FreeBlocks; after != before+2 {
		t.Fatalf("wanted `%d` free blocks; found `%d`", before+2, after)
	}
	if err := fs.Truncate(ino, MaxFileSize+1); !errors.Is(err, InvalidArgumentErr) {
		t.Fatalf("wanted `%v`; found `%v`", InvalidArgumentErr, err)
	}
	check(t, fs)
}

func TestDelete(t *testing.T) {
	device, fs := newFileSystem(t, 64)
	before := statfs(t, fs)

	ino, err := fs.WriteFile("/a.txt", pattern(5000))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	blocksBefore := statfs(t, fs).FreeBlocks
	if err := fs.Delete(InoRoot, "a.txt"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := fs.Lookup(InoRoot, "a.txt"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("wanted `%v`; found `%v`", NotFoundErr, err)
	}
	if _, err := fs.Stat(ino); !errors.Is(err, NotFoundErr) {
		t.Fatalf("wanted `%v`; found `%v`", NotFoundErr, err)
	}
	after := statfs(t, fs)
	if after.FreeBlocks != before.FreeBlocks || after.FreeInodes != before.FreeInodes {
		t.Fatalf(
			"wanted free counts `%d/%d`; found `%d/%d`",
			before.FreeBlocks,
			before.FreeInodes,
			after.FreeBlocks,
			after.FreeInodes,
		)
	}
	check(t, fs)

	// the freed inode and blocks are the first ones handed out again
	reused, err := fs.WriteFile("/b.txt", pattern(5000))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if reused != ino {
		t.Fatalf("wanted inode `%d` reused; found `%d`", ino, reused)
	}
	if free := statfs(t, fs).FreeBlocks; free != blocksBefore {
		t.Fatalf("wanted `%d` free blocks; found `%d`", blocksBefore, free)
	}

	// a deleted inode's record is zeroed once synced
	if err := fs.Delete(InoRoot, "b.txt"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := fs.Sync(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	offset := BlockSize + Byte(ino)*InodeSize
	slot := device.Bytes()[offset : offset+InodeSize]
	if !bytes.Equal(slot, make([]byte, InodeSize)) {
		t.Fatalf("wanted inode slot `%d` zeroed; found `%x`", ino, slot)
	}
	check(t, fs)
}

func TestDelete_Dirs(t *testing.T) {
	_, fs := newFileSystem(t, 64)
	if _, err := fs.CreatePath("/d", FileTypeDir); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := fs.CreatePath("/d/f", FileTypeRegular); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := fs.DeletePath("/d"); !errors.Is(err, NotEmptyErr) {
		t.Fatalf("wanted `%v`; found `%v`", NotEmptyErr, err)
	}
	if err := fs.DeletePath("/d/f"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := fs.DeletePath("/d"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := fs.DeletePath("/d"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("wanted `%v`; found `%v`", NotFoundErr, err)
	}
	root, err := fs.Stat(InoRoot)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if root.LinksCount != 2 {
		t.Fatalf("wanted root nlink `2`; found `%d`", root.LinksCount)
	}
	if found := statfs(t, fs); found.FreeInodes != found.InodeCount-1 {
		t.Fatalf("wanted only the root inode in use; found `%d` files", found.Files)
	}
	check(t, fs)
}

func TestSymlink(t *testing.T) {
	_, fs := newFileSystem(t, 64)
	ino, err := fs.SymlinkPath("/link", "/some/target")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	target, err := fs.Readlink(ino)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if target != "/some/target" {
		t.Fatalf("wanted `/some/target`; found `%s`", target)
	}
	if _, err := fs.Readlink(InoRoot); !errors.Is(err, InvalidArgumentErr) {
		t.Fatalf("wanted `%v`; found `%v`", InvalidArgumentErr, err)
	}
	long := string(bytes.Repeat([]byte{'x'}, InlineDataSize+1))
	if _, err := fs.Symlink(InoRoot, "long", long); !errors.Is(err, InvalidArgumentErr) {
		t.Fatalf("wanted `%v`; found `%v`", InvalidArgumentErr, err)
	}
	if _, err := fs.Symlink(InoRoot, "empty", ""); !errors.Is(err, InvalidArgumentErr) {
		t.Fatalf("wanted `%v`; found `%v`", InvalidArgumentErr, err)
	}
	if err := fs.DeletePath("/link"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	check(t, fs)
}

func TestLookupPath(t *testing.T) {
	_, fs := newFileSystem(t, 64)
	d, err := fs.CreatePath("/d", FileTypeDir)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	e, err := fs.CreatePath("/d/e", FileTypeDir)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	f, err := fs.CreatePath("d/e/f", FileTypeRegular)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	for _, testCase := range []struct {
		path      string
		wanted    Ino
		wantedErr error
	}{
		{path: "/", wanted: InoRoot},
		{path: "", wanted: InoRoot},
		{path: "/d", wanted: d},
		{path: "/d/e/", wanted: e},
		{path: "//d/./e/f", wanted: f},
		{path: "/d/e/../e/f", wanted: f},
		{path: "/../../d", wanted: d},
		{path: "/d/..", wanted: InoRoot},
		{path: "/d/x", wantedErr: NotFoundErr},
		{path: "/d/e/f/g", wantedErr: NotDirErr},
	} {
		t.Run(testCase.path, func(t *testing.T) {
			found, err := fs.LookupPath(testCase.path)
			if testCase.wantedErr != nil {
				if !errors.Is(err, testCase.wantedErr) {
					t.Fatalf("wanted `%v`; found `%v`", testCase.wantedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if found != testCase.wanted {
				t.Fatalf("wanted `%d`; found `%d`", testCase.wanted, found)
			}
		})
	}
}

func TestReadDir(t *testing.T) {
	_, fs := newFileSystem(t, 64)
	var wanted []directory.FileInfo
	for _, entry := range []struct {
		name     string
		fileType FileType
	}{
		{"a", FileTypeRegular},
		{"b", FileTypeDir},
		{"c", FileTypeRegular},
	} {
		ino, err := fs.Create(InoRoot, entry.name, entry.fileType)
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		wanted = append(wanted, directory.FileInfo{
			Ino:      ino,
			FileType: entry.fileType,
			Name:     entry.name,
		})
	}
	if err := fs.Delete(InoRoot, "a"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	wanted = wanted[1:]

	found, err := fs.ReadDir(InoRoot)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(found) != len(wanted) {
		t.Fatalf("wanted `%d` entries; found `%d`", len(wanted), len(found))
	}
	for i := range wanted {
		if !wanted[i].Equal(&found[i]) {
			t.Fatalf("entry `%d`: wanted `%+v`; found `%+v`", i, wanted[i], found[i])
		}
	}

	handle, err := fs.OpenDir(InoRoot, 1)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	var info directory.FileInfo
	if err := handle.ReadNext(&info); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !info.Equal(&wanted[1]) {
		t.Fatalf("wanted `%+v`; found `%+v`", wanted[1], info)
	}
	if err := handle.ReadNext(&info); err != io.EOF {
		t.Fatalf("wanted `%v`; found `%v`", io.EOF, err)
	}
	if err := handle.Close(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := handle.ReadNext(&info); !errors.Is(err, ClosedErr) {
		t.Fatalf("wanted `%v`; found `%v`", ClosedErr, err)
	}
	if _, err := fs.ReadDir(wanted[1].Ino); !errors.Is(err, NotDirErr) {
		t.Fatalf("wanted `%v`; found `%v`", NotDirErr, err)
	}
}

func TestTree(t *testing.T) {
	_, fs := newFileSystem(t, 64)
	if _, err := fs.CreatePath("/d", FileTypeDir); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	f, err := fs.WriteFile("/d/f", []byte("hello"))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	l, err := fs.SymlinkPath("/l", "d/f")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	d, err := fs.LookupPath("/d")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	found, err := fs.Tree(InoRoot)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	wanted := TreeNode{
		Ino:      InoRoot,
		FileType: FileTypeDir,
		Size:     BlockSize,
		Children: []TreeNode{
			{
				Name:     "d",
				Ino:      d,
				FileType: FileTypeDir,
				Size:     BlockSize,
				Children: []TreeNode{
					{Name: "f", Ino: f, FileType: FileTypeRegular, Size: 5},
				},
			},
			{Name: "l", Ino: l, FileType: FileTypeSymlink, Size: 3},
		},
	}
	if !treeEqual(&wanted, &found) {
		t.Fatalf("wanted `%+v`; found `%+v`", wanted, found)
	}
}

func TestTree_DirectoryCycle(t *testing.T) {
	_, fs := newFileSystem(t, 64)
	d, err := fs.CreatePath("/d", FileTypeDir)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	e, err := fs.CreatePath("/d/e", FileTypeDir)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	// link `/d/e/loop` back to `/d` behind the engine's back
	node, err := fs.acquire(e)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	table, err := fs.dirTable(node)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := table.Insert("loop", d); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	fs.release(node)

	if _, err := fs.Tree(InoRoot); !errors.Is(err, CorruptErr) {
		t.Fatalf("wanted `%v`; found `%v`", CorruptErr, err)
	}
}

func treeEqual(wanted, found *TreeNode) bool {
	if wanted.Name != found.Name || wanted.Ino != found.Ino ||
		wanted.FileType != found.FileType || wanted.Size != found.Size ||
		len(wanted.Children) != len(found.Children) {
		return false
	}
	for i := range wanted.Children {
		if !treeEqual(&wanted.Children[i], &found.Children[i]) {
			return false
		}
	}
	return true
}

func TestFile(t *testing.T) {
	_, fs := newFileSystem(t, 64)
	ino, err := fs.Create(InoRoot, "f", FileTypeRegular)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	f, err := fs.Open(ino)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	other, err := fs.Open(ino)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := f.WriteAt([]byte("hello world"), 0); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	// handles share the node
	p := make([]byte, 20)
	n, err := other.ReadAt(p, 6)
	if err != io.EOF {
		t.Fatalf("wanted `%v`; found `%v`", io.EOF, err)
	}
	if string(p[:n]) != "world" {
		t.Fatalf("wanted `world`; found `%s`", p[:n])
	}
	if err := other.Truncate(5); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	stat, err := f.Stat()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if stat.Size != 5 {
		t.Fatalf("wanted size `5`; found `%d`", stat.Size)
	}
	for _, offset := range []int64{5, 100, 1 << 40} {
		if n, err := f.ReadAt(p, offset); n != 0 || err != io.EOF {
			t.Fatalf(
				"offset `%d`: wanted `0, %v`; found `%d, %v`",
				offset,
				io.EOF,
				n,
				err,
			)
		}
	}

	if err := f.Close(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := f.ReadAt(p, 0); !errors.Is(err, ClosedErr) {
		t.Fatalf("wanted `%v`; found `%v`", ClosedErr, err)
	}
	if err := f.Close(); !errors.Is(err, ClosedErr) {
		t.Fatalf("wanted `%v`; found `%v`", ClosedErr, err)
	}

	if err := fs.Delete(InoRoot, "f"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := other.ReadAt(p, 0); !errors.Is(err, NotFoundErr) {
		t.Fatalf("wanted `%v`; found `%v`", NotFoundErr, err)
	}
	if err := other.Close(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if _, err := fs.Open(InoRoot); !errors.Is(err, IsDirErr) {
		t.Fatalf("wanted `%v`; found `%v`", IsDirErr, err)
	}
	check(t, fs)
}

func TestUnmount(t *testing.T) {
	_, fs := newFileSystem(t, 64)
	f, err := fs.OpenPath("/")
	if !errors.Is(err, IsDirErr) || f != nil {
		t.Fatalf("wanted `%v`; found `%v`", IsDirErr, err)
	}
	if err := fs.Unmount(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if _, err := fs.Lookup(InoRoot, "x"); !errors.Is(err, ClosedErr) {
		t.Fatalf("wanted `%v`; found `%v`", ClosedErr, err)
	}
	if err := fs.Sync(); !errors.Is(err, ClosedErr) {
		t.Fatalf("wanted `%v`; found `%v`", ClosedErr, err)
	}
	if err := fs.Unmount(); !errors.Is(err, ClosedErr) {
		t.Fatalf("wanted `%v`; found `%v`", ClosedErr, err)
	}
}

func TestCacheEviction(t *testing.T) {
	device := extentio.NewBuffer(256)
	if err := Format(device, testOptions()); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	opts := testOptions()
	opts.CacheCapacity = -1
	fs, err := Mount(device, opts)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := fs.WriteFile(fmt.Sprintf("/f%d", i), pattern(i*1000)); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}
	// the root and the ten files are dirty until the next sync
	if n := statfs(t, fs).CachedNodes; n != 11 {
		t.Fatalf("wanted `11` dirty nodes resident; found `%d`", n)
	}
	if err := fs.Sync(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if n := statfs(t, fs).CachedNodes; n != 0 {
		t.Fatalf("wanted an empty cache after sync; found `%d` nodes", n)
	}
	for i := 0; i < 10; i++ {
		found, err := fs.ReadFile(fmt.Sprintf("/f%d", i))
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if !bytes.Equal(found, pattern(i*1000)) {
			t.Fatalf("file `%d`: wanted the written bytes back", i)
		}
	}
	check(t, fs)
}

func TestUnsyncedChangesLeaveDeviceConsistent(t *testing.T) {
	device, fs := newFileSystem(t, 512)
	if _, err := fs.CreatePath("/d", FileTypeDir); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := fs.Sync(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	// more idle inodes than the cache holds
	if _, err := fs.CreatePath("/d/child", FileTypeRegular); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	for i := 0; i < 2*DefaultCacheCapacity; i++ {
		if _, err := fs.WriteFile(fmt.Sprintf("/f%d", i), pattern(100)); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}

	// a crash now leaves the device as of the last sync
	snapshot := extentio.NewBufferFrom(bytes.Clone(device.Bytes()))
	crashed := mount(t, snapshot)
	check(t, crashed)
	if _, err := crashed.LookupPath("/d/child"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("wanted `%v`; found `%v`", NotFoundErr, err)
	}
	if _, err := crashed.CreatePath("/new", FileTypeRegular); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	check(t, crashed)

	if err := fs.Sync(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	check(t, mount(t, extentio.NewBufferFrom(bytes.Clone(device.Bytes()))))
}

func TestConcurrentReaders(t *testing.T) {
	_, fs := newFileSystem(t, 256)
	files := make(map[string][]byte)
	for i := 0; i < 8; i++ {
		path := fmt.Sprintf("/f%d", i)
		files[path] = pattern(3000 * (i + 1))
		if _, err := fs.WriteFile(path, files[path]); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				for path, wanted := range files {
					found, err := fs.ReadFile(path)
					if err != nil {
						errs <- err
						return
					}
					if !bytes.Equal(found, wanted) {
						errs <- fmt.Errorf("`%s`: wanted the written bytes back", path)
						return
					}
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if _, err := fs.WriteFile(fmt.Sprintf("/w%d", i), pattern(100)); err != nil {
				errs <- err
				return
			}
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected err: %v", err)
	}
	check(t, fs)
}

func TestCheck_DetectsCorruption(t *testing.T) {
	device, fs := newFileSystem(t, 64)
	if _, err := fs.WriteFile("/f", pattern(100)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := fs.Unmount(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	// mark an unreferenced data block used and lower the free count to
	// match, so the mount still succeeds
	superblock := (*[BlockSize]byte)(device.Bytes()[:BlockSize])
	var sb Superblock
	encode.DecodeSuperblock(&sb, superblock)
	bitmap := device.Bytes()[Byte(sb.BlockBitmapStart())*BlockSize:]
	bitmap[7] |= 0x80 // block 63
	sb.FreeBlocks--
	encode.EncodeSuperblock(&sb, superblock)

	fs = mount(t, device)
	if err := fs.Check(); !errors.Is(err, CorruptErr) {
		t.Fatalf("wanted `%v`; found `%v`", CorruptErr, err)
	}
}

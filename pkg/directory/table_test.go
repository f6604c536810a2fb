package directory

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/weberc2/extentfs/pkg/encode"
	extentio "github.com/weberc2/extentfs/pkg/io"
	. "github.com/weberc2/extentfs/pkg/types"
)

func TestValidateName(t *testing.T) {
	for _, testCase := range []struct {
		name   string
		input  string
		wanted error
	}{
		{name: "simple", input: "a.txt"},
		{name: "max-length", input: strings.Repeat("x", FileNameLen)},
		{name: "empty", input: "", wanted: InvalidArgumentErr},
		{
			name:   "too-long",
			input:  strings.Repeat("x", FileNameLen+1),
			wanted: InvalidArgumentErr,
		},
		{name: "slash", input: "a/b", wanted: InvalidArgumentErr},
		{name: "nul", input: "a\x00b", wanted: InvalidArgumentErr},
		{name: "dot", input: ".", wanted: InvalidArgumentErr},
		{name: "dotdot", input: "..", wanted: InvalidArgumentErr},
		{name: "dotfile", input: ".profile"},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			err := ValidateName(testCase.input)
			if testCase.wanted == nil {
				if err != nil {
					t.Fatalf("unexpected err: %v", err)
				}
				return
			}
			if !errors.Is(err, testCase.wanted) {
				t.Fatalf("wanted `%v`; found `%v`", testCase.wanted, err)
			}
		})
	}
}

func TestInsertLookupRemove(t *testing.T) {
	table := New(extentio.NewBuffer(1), 0)
	for i, name := range []string{"a", "b", "c", "d"} {
		if err := table.Insert(name, Ino(i+1)); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}
	if err := table.Insert("b", 9); !errors.Is(err, AlreadyExistsErr) {
		t.Fatalf("wanted `%v`; found `%v`", AlreadyExistsErr, err)
	}
	if err := table.Insert("z", InoNil); !errors.Is(err, InvalidArgumentErr) {
		t.Fatalf("wanted `%v`; found `%v`", InvalidArgumentErr, err)
	}

	ino, err := table.Remove("b")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ino != 2 {
		t.Fatalf("wanted `2`; found `%d`", ino)
	}
	if _, err := table.Lookup("b"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("wanted `%v`; found `%v`", NotFoundErr, err)
	}
	if _, err := table.Remove("b"); !errors.Is(err, NotFoundErr) {
		t.Fatalf("wanted `%v`; found `%v`", NotFoundErr, err)
	}

	// removal shifts later entries back, keeping the rest in order
	wanted := []DirEntry{{Ino: 1, Name: "a"}, {Ino: 3, Name: "c"}, {Ino: 4, Name: "d"}}
	found := table.Entries()
	if len(found) != len(wanted) {
		t.Fatalf("wanted `%v`; found `%v`", wanted, found)
	}
	for i := range wanted {
		if found[i] != wanted[i] {
			t.Fatalf("wanted `%v`; found `%v`", wanted, found)
		}
	}
	if ino, err := table.Lookup("d"); err != nil || ino != 4 {
		t.Fatalf("wanted `4`; found `%d` (err: %v)", ino, err)
	}
}

func TestInsert_Full(t *testing.T) {
	table := New(extentio.NewBuffer(1), 0)
	for i := 0; i < MaxSubfiles; i++ {
		if err := table.Insert(fmt.Sprintf("file-%d", i), Ino(i+1)); err != nil {
			t.Fatalf("entry `%d`: unexpected err: %v", i, err)
		}
	}
	if err := table.Insert("one-too-many", 999); !errors.Is(err, DirFullErr) {
		t.Fatalf("wanted `%v`; found `%v`", DirFullErr, err)
	}
	if table.Len() != MaxSubfiles {
		t.Fatalf("wanted `%d` entries; found `%d`", MaxSubfiles, table.Len())
	}
}

func TestFlushLoad(t *testing.T) {
	device := extentio.NewBuffer(2)
	table := New(device, 1)
	for i := 0; i < MaxSubfiles; i++ {
		if err := table.Insert(fmt.Sprintf("%028d", i), Ino(i+1)); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}
	if _, err := table.Remove(fmt.Sprintf("%028d", 0)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := table.Flush(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	loaded, err := Load(device, 1)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if loaded.Len() != MaxSubfiles-1 || loaded.Dirty() {
		t.Fatalf("wanted `%d` clean entries; found `%d`", MaxSubfiles-1, loaded.Len())
	}
	for i, entry := range loaded.Entries() {
		if entry.Name != fmt.Sprintf("%028d", i+1) || entry.Ino != Ino(i+2) {
			t.Fatalf("entry `%d`: found `%+v`", i, entry)
		}
	}
}

func TestLoad_Corrupt(t *testing.T) {
	for _, testCase := range []struct {
		name    string
		entries []DirEntry
	}{
		{name: "duplicate", entries: []DirEntry{{Ino: 1, Name: "a"}, {Ino: 2, Name: "a"}}},
		{name: "dot", entries: []DirEntry{{Ino: 1, Name: "."}}},
		{name: "slash", entries: []DirEntry{{Ino: 1, Name: "a/b"}}},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			device := extentio.NewBuffer(1)
			var b [BlockSize]byte
			encode.EncodeDirEntries(testCase.entries, &b)
			if err := device.WriteBlock(0, b[:]); err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if _, err := Load(device, 0); !errors.Is(err, CorruptErr) {
				t.Fatalf("wanted `%v`; found `%v`", CorruptErr, err)
			}
		})
	}
}

func TestReadNext(t *testing.T) {
	table := New(extentio.NewBuffer(1), 0)
	for i, name := range []string{"x", "y", "z"} {
		if err := table.Insert(name, Ino(i+1)); err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	}

	for _, testCase := range []struct {
		name   string
		offset int
		wanted []string
	}{
		{name: "start", offset: 0, wanted: []string{"x", "y", "z"}},
		{name: "middle", offset: 1, wanted: []string{"y", "z"}},
		{name: "end", offset: 3, wanted: nil},
		{name: "past-end", offset: 10, wanted: nil},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			handle := At(testCase.offset)
			var found []string
			var entry DirEntry
			for {
				err := table.ReadNext(&handle, &entry)
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("unexpected err: %v", err)
				}
				found = append(found, entry.Name)
			}
			if strings.Join(found, ",") != strings.Join(testCase.wanted, ",") {
				t.Fatalf("wanted `%v`; found `%v`", testCase.wanted, found)
			}
		})
	}
}

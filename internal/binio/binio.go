// binio.go --  This file is part of goTDSE project.
// Mirzaeva Irina, 2023
//
//	goTDSE is distributed in the hope that it will be useful,
//	but WITHOUT ANY WARRANTY; without even the implied warranty
//	of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//	See the GNU General Public License for more details.
//
//	You should have received a copy of the GNU General Public License
//	along with this program.  If not, see http://www.gnu.org/licenses/
//
// ------------------------------------------------

// Package binio reads and writes the flat little-endian binary files shared by
// the basis, dipole and propagation stages.
package binio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrBadFile is returned when a file is empty or its size is not a multiple of
// the record size.
var ErrBadFile = errors.New("binio: malformed file")

var order = binary.LittleEndian

// WriteAtomic writes path through a temporary file in the same folder which is
// renamed over path only after write succeeded and the data hit the disk.
func WriteAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("binio: create temp for %s: %w", path, err)
	}
	name := tmp.Name()
	defer os.Remove(name)

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		tmp.Close()
		return fmt.Errorf("binio: write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("binio: write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("binio: sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("binio: close %s: %w", path, err)
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("binio: rename %s: %w", path, err)
	}
	return nil
}

// WriteFloat64s stores v as a contiguous array of float64.
func WriteFloat64s(path string, v []float64) error {
	return WriteAtomic(path, func(w io.Writer) error {
		return binary.Write(w, order, v)
	})
}

// WriteComplex128s stores v as a contiguous array of complex128.
func WriteComplex128s(path string, v []complex128) error {
	return WriteAtomic(path, func(w io.Writer) error {
		return binary.Write(w, order, v)
	})
}

// ReadFloat64s loads a whole float64 file.
func ReadFloat64s(path string) ([]float64, error) {
	n, err := records(path, 8)
	if err != nil {
		return nil, err
	}
	v := make([]float64, n)
	if err := readInto(path, v); err != nil {
		return nil, err
	}
	return v, nil
}

// ReadComplex128s loads a whole complex128 file.
func ReadComplex128s(path string) ([]complex128, error) {
	n, err := records(path, 16)
	if err != nil {
		return nil, err
	}
	v := make([]complex128, n)
	if err := readInto(path, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Records returns how many records of size bytes path holds. Empty files and
// files with a trailing partial record are rejected with ErrBadFile.
func Records(path string, size int) (int, error) {
	return records(path, size)
}

func records(path string, size int) (int, error) {
	st, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("binio: %w", err)
	}
	if st.Size() == 0 {
		return 0, fmt.Errorf("%w: %s is empty", ErrBadFile, path)
	}
	if st.Size()%int64(size) != 0 {
		return 0, fmt.Errorf("%w: %s has %d bytes, not a multiple of %d", ErrBadFile, path, st.Size(), size)
	}
	return int(st.Size() / int64(size)), nil
}

func readInto(path string, data any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("binio: %w", err)
	}
	defer f.Close()
	if err := binary.Read(bufio.NewReader(f), order, data); err != nil {
		return fmt.Errorf("binio: read %s: %w", path, err)
	}
	return nil
}

// Appender appends records to a growing output stream such as efield.dat.
type Appender struct {
	f  *os.File
	bw *bufio.Writer
}

// Create truncates path and returns an Appender writing to it.
func Create(path string) (*Appender, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("binio: %w", err)
	}
	return &Appender{f: f, bw: bufio.NewWriter(f)}, nil
}

// Float64 appends the values in order.
func (a *Appender) Float64(v ...float64) error {
	return binary.Write(a.bw, order, v)
}

// Complex128 appends the values in order.
func (a *Appender) Complex128(v ...complex128) error {
	return binary.Write(a.bw, order, v)
}

// Flush pushes buffered records to the file.
func (a *Appender) Flush() error {
	return a.bw.Flush()
}

// Close flushes and closes the stream.
func (a *Appender) Close() error {
	if err := a.bw.Flush(); err != nil {
		a.f.Close()
		return err
	}
	return a.f.Close()
}

// table.go --  This file is part of goTDSE project.
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

package binio

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// WriteTable writes data as a human readable text table, one row per line,
// every column formatted with %12.6f.
func WriteTable(path string, data [][]float64) error {
	return WriteAtomic(path, func(w io.Writer) error {
		for i := range data {
			for j := range data[i] {
				if _, err := fmt.Fprintf(w, "%12.6f", data[i][j]); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadFileLines returns the lines of a text file.
func ReadFileLines(fname string) ([]string, error) {
	var result []string

	file, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		result = append(result, scanner.Text())
	}
	return result, scanner.Err()
}

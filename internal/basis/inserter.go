// inserter.go --  This file is part of goTDSE project.
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

package basis

// LabelInserter turns an accepted eigenvalue into the next label of a
// channel.
type LabelInserter interface {
	Insert(e complex128) Label
}

// ChannelInserter numbers the states of one channel n = l+1, l+2, ... with
// m = 0. Create one per channel.
type ChannelInserter struct {
	l, n int32
}

func NewChannelInserter(l int) *ChannelInserter {
	return &ChannelInserter{l: int32(l), n: int32(l) + 1}
}

func (c *ChannelInserter) Insert(e complex128) Label {
	b := Label{N: c.n, L: c.l, M: 0, E: e}
	c.n++
	return b
}

package codec

import (
	"fmt"
	"math/big"

	"github.com/dovreshef/clickhouse-rowbinary/ctype"
	"github.com/dovreshef/clickhouse-rowbinary/cvalue"
	"github.com/dovreshef/clickhouse-rowbinary/errs"
	"github.com/dovreshef/clickhouse-rowbinary/internal/pool"
	"github.com/dovreshef/clickhouse-rowbinary/wire"
)

// rescale adjusts a Decimal's coefficient from its own scale to the
// column's declared scale, so a value built at one scale can be stored
// into a column declared at another (e.g. DecimalFromInt64 at scale 0
// written into a Decimal(10, 2) column).
func rescale(d cvalue.Decimal, wantScale int) *big.Int {
	if d.Scale == wantScale {
		return d.Coeff
	}
	if d.Scale < wantScale {
		factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(wantScale-d.Scale)), nil)
		return new(big.Int).Mul(d.Coeff, factor)
	}

	factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.Scale-wantScale)), nil)

	return new(big.Int).Quo(d.Coeff, factor)
}

func encodeDecimal(buf *pool.ByteBuffer, t *ctype.Type, v cvalue.Value) error {
	coeff := rescale(v.AsDecimal(), t.Scale)
	width := t.Width()

	if !wire.FitsWideInt(coeff, width, true) {
		return fmt.Errorf("%w: decimal coefficient does not fit in %s", errs.ErrDecimalOverflow, t)
	}

	buf.B = wire.AppendWideInt(buf.B, wire.TwosComplement(coeff, width), width)

	return nil
}

func decodeDecimal(data []byte, t *ctype.Type) (cvalue.Value, int, error) {
	coeff, n, err := wire.DecodeWideInt(data, t.Width())
	if err != nil {
		return cvalue.Value{}, 0, err
	}

	return cvalue.DecimalValue(coeff, t.Scale), n, nil
}

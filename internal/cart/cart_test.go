package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/asarum-backend/pkg/types"
)

func line(productID, variant string, qty int, price int64) types.LineItem {
	return types.LineItem{
		ID:          productID + "/" + variant,
		ProductID:   productID,
		VariantName: variant,
		Quantity:    qty,
		Price:       decimal.NewFromInt(price),
		ProductName: productID,
	}
}

func TestAddMergesSameKey(t *testing.T) {
	c := New("s1")
	c.Add(line("sofia", "24 ROSAS", 1, 1650))
	c.Add(line("sofia", "24 ROSAS", 2, 1650))

	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.True(t, c.Items[0].Subtotal().Equal(decimal.NewFromInt(4950)))
	assert.True(t, c.Total().Equal(decimal.NewFromInt(4950)))
}

func TestAddManyTimesSumsQuantities(t *testing.T) {
	c := New("s1")
	want := 0
	for q := 1; q <= 10; q++ {
		c.Add(line("olivia", "12 Rosas", q, 1250))
		want += q
	}
	require.Len(t, c.Items, 1)
	assert.Equal(t, want, c.Items[0].Quantity)
}

func TestAddDistinctVariantsKeepsSeparateLines(t *testing.T) {
	c := New("s1")
	c.Add(line("olivia", "12 Rosas", 1, 1250))
	c.Add(line("olivia", "24 Rosas", 1, 1800))
	c.Add(line("luciana", "", 2, 950))

	require.Len(t, c.Items, 3)
	assert.Equal(t, "12 Rosas", c.Items[0].VariantName)
	assert.Equal(t, "24 Rosas", c.Items[1].VariantName)
	assert.True(t, c.Total().Equal(decimal.NewFromInt(1250+1800+1900)))
	assert.Equal(t, 4, c.ItemCount())
}

func TestUpdateQuantityFloorsAtOne(t *testing.T) {
	for _, delta := range []int{-1, -2, -100, -1 << 30} {
		c := New("s1")
		c.Add(line("mia", "Chico", 2, 999))
		c.UpdateQuantity("mia", "Chico", delta)
		assert.Equal(t, 1, c.Items[0].Quantity, "delta %d", delta)
	}

	c := New("s1")
	c.Add(line("mia", "Chico", 2, 999))
	c.UpdateQuantity("mia", "Chico", 3)
	assert.Equal(t, 5, c.Items[0].Quantity)
}

func TestUnknownLinesAreNoOps(t *testing.T) {
	c := New("s1")
	c.Add(line("mia", "Chico", 2, 999))

	c.UpdateQuantity("mia", "Grande", 5)
	c.Remove("elena", "")
	c.UpdateQuantity("elena", "", -1)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestRemoveAndClear(t *testing.T) {
	c := New("s1")
	c.Add(line("mia", "Chico", 1, 999))
	c.Add(line("alma", "", 1, 1600))
	c.Add(line("ale", "Jumbo", 1, 5000))

	c.Remove("alma", "")
	require.Len(t, c.Items, 2)
	assert.Equal(t, "mia", c.Items[0].ProductID)
	assert.Equal(t, "ale", c.Items[1].ProductID)

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total().IsZero())
	c.Clear()
	assert.True(t, c.IsEmpty())
}

func TestTotalTracksMutations(t *testing.T) {
	c := New("s1")
	c.Add(line("amalia", "6 Rosas", 1, 600))
	assert.True(t, c.Total().Equal(decimal.NewFromInt(600)))
	c.UpdateQuantity("amalia", "6 Rosas", 2)
	assert.True(t, c.Total().Equal(decimal.NewFromInt(1800)))
	c.Remove("amalia", "6 Rosas")
	assert.True(t, c.Total().IsZero())
}

func TestSnapshotIsDetached(t *testing.T) {
	c := New("s1")
	c.Add(line("laura", "100 Rosas", 1, 4500))
	snap := c.Snapshot()

	c.UpdateQuantity("laura", "100 Rosas", 4)
	c.Items[0].Price = decimal.NewFromInt(1)

	assert.Equal(t, 1, snap[0].Quantity)
	assert.True(t, snap[0].Price.Equal(decimal.NewFromInt(4500)))
}

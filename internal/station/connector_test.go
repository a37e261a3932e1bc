package station

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateStateFaultedWins(t *testing.T) {
	c1 := NewConnector(1, StatusAvailable)
	c2 := NewConnector(2, StatusFaulted)
	assert.Equal(t, StateFaulted, AggregateState([]*Connector{c1, c2}))
}

func TestAggregateStateChargingWhenAnyCharging(t *testing.T) {
	c1 := NewConnector(1, StatusAvailable)
	c2 := NewConnector(2, StatusCharging)
	assert.Equal(t, StateCharging, AggregateState([]*Connector{c1, c2}))
}

func TestAggregateStateUnavailableWhenAllUnavailable(t *testing.T) {
	c1 := NewConnector(1, StatusUnavailable)
	c2 := NewConnector(2, StatusUnavailable)
	assert.Equal(t, StateUnavailable, AggregateState([]*Connector{c1, c2}))
}

func TestAggregateStateIgnoresConnectorZero(t *testing.T) {
	c0 := NewConnector(0, StatusFaulted)
	c1 := NewConnector(1, StatusAvailable)
	assert.Equal(t, StateAvailable, AggregateState([]*Connector{c0, c1}))
}

func TestConnectorStartStopTransactionInvariant(t *testing.T) {
	c := NewConnector(1, StatusAvailable)
	assert.False(t, c.IsActive())

	c.StartTransaction(7, "AAA", 1000, false)
	assert.True(t, c.IsActive())
	assert.Equal(t, 7, c.Transaction.TransactionID)

	c.StopTransaction()
	assert.False(t, c.IsActive())
}

func TestHashIDStableForIdenticalIdentity(t *testing.T) {
	tmpl := &Template{BaseName: "CP", FixedName: true}
	a := NewInfo(tmpl, 1, "Acme", "X1", "SN")
	b := NewInfo(tmpl, 1, "Acme", "X1", "SN")
	assert.Equal(t, a.HashID, b.HashID)

	c := NewInfo(tmpl, 2, "Acme", "X1", "SN")
	assert.NotEqual(t, a.HashID, c.HashID)
}

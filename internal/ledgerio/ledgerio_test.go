package ledgerio

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payments_ledger/internal/domain"
	"payments_ledger/pkg/money"
	"payments_ledger/pkg/validator"
)

func TestReader_DecodesAllKinds(t *testing.T) {
	input := `type, client, tx, amount
deposit, 1, 1, 1.0
Withdrawal, 2, 2, 0.5
dispute, 1, 1,
resolve, 1, 1
chargeback, 1, 1,
`
	txs, err := Decode(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txs, 5)

	assert.Equal(t, domain.KindDeposit, txs[0].Kind())
	assert.Equal(t, domain.KindWithdrawal, txs[1].Kind())
	assert.Equal(t, domain.KindDispute, txs[2].Kind())
	assert.Equal(t, domain.KindResolve, txs[3].Kind())
	assert.Equal(t, domain.KindChargeback, txs[4].Kind())

	w, ok := txs[1].(domain.Withdrawal)
	require.True(t, ok)
	assert.Equal(t, domain.ClientID(2), w.Client)
	assert.Equal(t, "0.5000", w.Value.String())
}

func TestReader_ColumnsByName(t *testing.T) {
	input := "amount,tx,client,type\n2.5,9,3,deposit\n"

	txs, err := Decode(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, txs, 1)

	d := txs[0].(domain.Deposit)
	assert.Equal(t, domain.ClientID(3), d.Client)
	assert.Equal(t, domain.TransactionID(9), d.Tx)
	assert.Equal(t, "2.5000", d.Value.String())
}

func TestReader_HeaderOnly(t *testing.T) {
	txs, err := Decode(strings.NewReader("type,client,tx,amount\n"))
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestReader_EmptyInput(t *testing.T) {
	txs, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestReader_NegativeAmount(t *testing.T) {
	txs, err := Decode(strings.NewReader("type,client,tx,amount\ndeposit,1,1,-5.0\nwithdrawal,1,2,-1\n"))
	require.NoError(t, err)
	require.Len(t, txs, 2)

	d, ok := txs[0].(domain.Deposit)
	require.True(t, ok)
	assert.Equal(t, "-5.0000", d.Value.String())
	w, ok := txs[1].(domain.Withdrawal)
	require.True(t, ok)
	assert.Equal(t, "-1.0000", w.Value.String())
}

func TestReader_MissingColumn(t *testing.T) {
	_, err := Decode(strings.NewReader("type,client,amount\ndeposit,1,1.0\n"))
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "tx")
}

func TestReader_AllOrNothing(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		line    string
	}{
		{
			name:    "unknown type",
			input:   "type,client,tx,amount\ndeposit,1,1,1.0\ntransfer,1,2,1.0\n",
			wantErr: validator.ErrUnknownType,
			line:    "line 3",
		},
		{
			name:    "deposit without amount",
			input:   "type,client,tx,amount\ndeposit,1,1,\n",
			wantErr: validator.ErrMissingAmount,
			line:    "line 2",
		},
		{
			name:    "dispute with amount",
			input:   "type,client,tx,amount\ndeposit,1,1,1.0\ndispute,1,1,1.0\n",
			wantErr: validator.ErrUnexpectedAmount,
			line:    "line 3",
		},
		{
			name:    "unparseable amount",
			input:   "type,client,tx,amount\nwithdrawal,1,1,3.x\n",
			wantErr: validator.ErrInvalidAmount,
			line:    "line 2",
		},
		{
			name:    "client out of range",
			input:   "type,client,tx,amount\ndeposit,70000,1,1\n",
			wantErr: validator.ErrInvalidClient,
			line:    "line 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, err := Decode(strings.NewReader(tt.input))
			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.line)
			assert.Nil(t, txs)
		})
	}
}

func TestReader_MalformedQuoting(t *testing.T) {
	_, err := Decode(strings.NewReader("type,client,tx,amount\n\"deposit,1,1,1\n"))
	assert.Error(t, err)
}

func ledgerFixture() domain.Ledger {
	return domain.Ledger{
		{Client: 1, Available: money.MustFromFloat(1.5), Held: money.Zero, Total: money.MustFromFloat(1.5)},
		{Client: 2, Available: money.MustFromFloat(-50), Held: money.Zero, Total: money.MustFromFloat(-50), Locked: true},
	}
}

func TestWriter_CSV(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewWriter(&buf, FormatCSV).Write(ledgerFixture()))

	want := "client,available,held,total,locked\n" +
		"1,1.5000,0.0000,1.5000,false\n" +
		"2,-50.0000,0.0000,-50.0000,true\n"
	assert.Equal(t, want, buf.String())
}

func TestWriter_CSVEmptyLedger(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewWriter(&buf, "").Write(nil))

	assert.Equal(t, "client,available,held,total,locked\n", buf.String())
}

func TestWriter_JSON(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewWriter(&buf, FormatJSON).Write(ledgerFixture()))

	var rows []LedgerRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, LedgerRow{Client: 1, Available: "1.5000", Held: "0.0000", Total: "1.5000"}, rows[0])
	assert.True(t, rows[1].Locked)
	assert.Equal(t, "-50.0000", rows[1].Available)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("xml")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

package valuation

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// This file contains the import/export format of holdings: JSON documents,
// either as a single array or as a stream of objects (JSONL).

// jactivity is the activity as read from a file, all kinds mixed.
type jactivity struct {
	Type          ActivityKind `json:"type"`
	Date          Date         `json:"date"`
	TransactionID string       `json:"transactionId"`
	Description   string       `json:"description"`
	Quantity      *Quantity    `json:"quantity"`
	UnitPrice     *Money       `json:"unitPrice"`
	Amount        *Money       `json:"amount"`
}

type jholding struct {
	Activities     []jactivity      `json:"activities"`
	SymbolProfiles []*SymbolProfile `json:"symbolProfiles"`
}

// decodeActivity builds the concrete activity for its kind.
func decodeActivity(j jactivity) (Activity, error) {
	if j.TransactionID == "" {
		j.TransactionID = uuid.NewString()
	}
	if j.Date.IsZero() {
		return nil, fmt.Errorf("activity %s: missing date", j.TransactionID)
	}
	switch j.Type {
	case KindBuy, KindSell:
		if j.Quantity == nil || j.UnitPrice == nil {
			return nil, fmt.Errorf("%s activity %s: quantity and unitPrice are required", j.Type, j.TransactionID)
		}
		if j.Type == KindBuy {
			return NewBuy(j.Date, j.TransactionID, j.Description, *j.Quantity, *j.UnitPrice), nil
		}
		return NewSell(j.Date, j.TransactionID, j.Description, *j.Quantity, *j.UnitPrice), nil
	case KindSend, KindReceive, KindGift, KindStakingReward:
		if j.Quantity == nil {
			return nil, fmt.Errorf("%s activity %s: quantity is required", j.Type, j.TransactionID)
		}
		return NewTransfer(j.Type, j.Date, j.TransactionID, j.Description, *j.Quantity, j.UnitPrice), nil
	case KindDividend, KindFee, KindInterest, KindCashDeposit, KindCashWithdrawal:
		var amount Money
		if j.Amount != nil {
			amount = *j.Amount
		}
		return NewCashActivity(j.Type, j.Date, j.TransactionID, j.Description, amount), nil
	default:
		return nil, fmt.Errorf("activity %s of type %q: %w", j.TransactionID, j.Type, ErrUnknownActivity)
	}
}

func (h *Holding) UnmarshalJSON(data []byte) error {
	var jh jholding
	if err := json.Unmarshal(data, &jh); err != nil {
		return err
	}
	h.Activities = make([]Activity, 0, len(jh.Activities))
	for _, ja := range jh.Activities {
		a, err := decodeActivity(ja)
		if err != nil {
			return err
		}
		h.Activities = append(h.Activities, a)
	}
	for _, p := range jh.SymbolProfiles {
		if p != nil {
			p.Sort()
		}
	}
	h.SymbolProfiles = jh.SymbolProfiles
	return nil
}

// DecodeHoldings reads holdings from 'r', either a JSON array of holdings or
// a stream of holding objects.
func DecodeHoldings(r io.Reader) ([]*Holding, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(br)
	if first == '[' {
		var holdings []*Holding
		if err := dec.Decode(&holdings); err != nil {
			return nil, fmt.Errorf("cannot decode holdings: %w", err)
		}
		return holdings, nil
	}

	var holdings []*Holding
	for i := 1; dec.More(); i++ {
		h := new(Holding)
		if err := dec.Decode(h); err != nil {
			return nil, fmt.Errorf("cannot decode holding #%d: %w", i, err)
		}
		holdings = append(holdings, h)
	}
	return holdings, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

func (a *baseActivity) writeTo(w *jsonObjectWriter) {
	w.Append("type", a.kind)
	w.Append("date", a.on)
	w.Optional("transactionId", a.id)
	w.Optional("description", a.description)
}

func (a *positionActivity) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	a.baseActivity.writeTo(&w)
	w.Append("quantity", a.quantity)
	w.Optional("unitPrice", a.unitPrice)
	w.EmbedFrom(&a.adjusted)
	return w.MarshalJSON()
}

func (c *CashActivity) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	c.baseActivity.writeTo(&w)
	w.Append("amount", c.amount)
	return w.MarshalJSON()
}

func (h *Holding) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("activities", h.Activities)
	w.Append("symbolProfiles", h.SymbolProfiles)
	return w.MarshalJSON()
}

// EncodeValuation writes the snapshots of a valuation as JSONL, one snapshot
// per line.
func EncodeValuation(w io.Writer, v *Valuation) error {
	enc := json.NewEncoder(w)
	for _, s := range v.Snapshots {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to write snapshot of %s on %s: %w", v.Symbol, s.Date, err)
		}
	}
	return nil
}

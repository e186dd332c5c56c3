package host

import (
	"context"
	"encoding/json"

	walleterr "github.com/vswallet/vswallet/pkg/errors"
)

// Request is one inbound command message.
type Request struct {
	ID      string          `json:"id,omitempty"`
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is the reply to one Request: a success payload or a
// human-readable error message, never both.
type Response struct {
	ID      string `json:"id,omitempty"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handler executes one command against the service.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Router dispatches requests to named handlers.
type Router struct {
	handlers map[string]Handler
}

// NewRouter creates a router with every service command registered.
func NewRouter(svc *Service) *Router {
	r := &Router{handlers: make(map[string]Handler)}
	r.register(svc)
	return r
}

// Dispatch runs a request and shapes its outcome into a Response.
func (r *Router) Dispatch(ctx context.Context, req Request) Response {
	handler, ok := r.handlers[req.Command]
	if !ok {
		err := walleterr.WithDetails(walleterr.ErrUnknownCommand, map[string]string{
			"command": req.Command,
		})
		return Response{ID: req.ID, Error: err.Error()}
	}

	data, err := handler(ctx, req.Params)
	if err != nil {
		return Response{ID: req.ID, Error: err.Error()}
	}
	return Response{ID: req.ID, Success: true, Data: data}
}

// Commands returns the registered command names.
func (r *Router) Commands() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

func decodeParams[T any](params json.RawMessage) (T, error) {
	var v T
	if len(params) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(params, &v); err != nil {
		return v, walleterr.Wrap(walleterr.ErrInvalidInput, "decoding parameters")
	}
	return v, nil
}

type nameParams struct {
	Name string `json:"name,omitempty"`
}

type connectParams struct {
	Phrase string `json:"phrase"`
	Name   string `json:"name,omitempty"`
}

type walletIDParams struct {
	WalletID string `json:"walletId"`
}

type addressParams struct {
	Address string `json:"address"`
}

type sendParams struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
	Note   string `json:"note,omitempty"`
}

type estimateParams struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type hashParams struct {
	Hash string `json:"hash"`
}

type windowParams struct {
	WindowDays int `json:"windowDays"`
}

type successPayload struct {
	Success bool `json:"success"`
}

func (r *Router) register(svc *Service) {
	r.handlers["walletCreate"] = func(_ context.Context, params json.RawMessage) (any, error) {
		p, err := decodeParams[nameParams](params)
		if err != nil {
			return nil, err
		}
		return svc.WalletCreate(p.Name)
	}

	r.handlers["walletConnect"] = func(_ context.Context, params json.RawMessage) (any, error) {
		p, err := decodeParams[connectParams](params)
		if err != nil {
			return nil, err
		}
		return svc.WalletConnect(p.Phrase, p.Name)
	}

	r.handlers["getWallets"] = func(_ context.Context, _ json.RawMessage) (any, error) {
		return svc.Wallets()
	}

	r.handlers["setActiveWallet"] = func(_ context.Context, params json.RawMessage) (any, error) {
		p, err := decodeParams[walletIDParams](params)
		if err != nil {
			return nil, err
		}
		ok, err := svc.SetActiveWallet(p.WalletID)
		if err != nil {
			return nil, err
		}
		return successPayload{Success: ok}, nil
	}

	r.handlers["getActiveWallet"] = func(_ context.Context, _ json.RawMessage) (any, error) {
		wallet, err := svc.ActiveWallet()
		if wallet == nil {
			// a typed nil would marshal as a JSON null payload
			return nil, err
		}
		return wallet, nil
	}

	r.handlers["getWalletBalance"] = func(ctx context.Context, params json.RawMessage) (any, error) {
		p, err := decodeParams[addressParams](params)
		if err != nil {
			return nil, err
		}
		return svc.WalletBalance(ctx, p.Address)
	}

	r.handlers["getWalletUsdBalance"] = func(ctx context.Context, params json.RawMessage) (any, error) {
		p, err := decodeParams[addressParams](params)
		if err != nil {
			return nil, err
		}
		return svc.WalletUsdBalance(ctx, p.Address)
	}

	r.handlers["transactionSend"] = func(ctx context.Context, params json.RawMessage) (any, error) {
		p, err := decodeParams[sendParams](params)
		if err != nil {
			return nil, err
		}
		return svc.TransactionSend(ctx, p.To, p.Amount, p.Note)
	}

	r.handlers["estimateGasFee"] = func(ctx context.Context, params json.RawMessage) (any, error) {
		p, err := decodeParams[estimateParams](params)
		if err != nil {
			return nil, err
		}
		return svc.EstimateGasFee(ctx, p.To, p.Amount)
	}

	r.handlers["getCurrETHPrice"] = func(ctx context.Context, _ json.RawMessage) (any, error) {
		return svc.CurrentPrice(ctx)
	}

	r.handlers["getPriceChange"] = func(ctx context.Context, params json.RawMessage) (any, error) {
		p, err := decodeParams[windowParams](params)
		if err != nil {
			return nil, err
		}
		return svc.PriceChange(ctx, p.WindowDays)
	}

	r.handlers["getTransactionHistory"] = func(_ context.Context, _ json.RawMessage) (any, error) {
		return svc.TransactionHistory()
	}

	r.handlers["recheckTransaction"] = func(ctx context.Context, params json.RawMessage) (any, error) {
		p, err := decodeParams[hashParams](params)
		if err != nil {
			return nil, err
		}
		return svc.RecheckTransaction(ctx, p.Hash)
	}

	r.handlers["disconnect"] = func(_ context.Context, _ json.RawMessage) (any, error) {
		svc.Disconnect()
		return successPayload{Success: true}, nil
	}

	r.handlers["clearAllData"] = func(_ context.Context, _ json.RawMessage) (any, error) {
		if err := svc.ClearAllData(); err != nil {
			return nil, err
		}
		return successPayload{Success: true}, nil
	}
}

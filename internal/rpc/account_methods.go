package rpc

import (
	"encoding/json"

	"github.com/LeJamon/goAMMd/internal/service"
)

// AccountBalancesMethod handles the account_balances RPC method
type AccountBalancesMethod struct {
	svc *service.Service
}

func (m *AccountBalancesMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Account string `json:"account"`
	}
	if rpcErr := unmarshalParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}

	if request.Account == "" {
		return nil, RpcErrorMissingField("account")
	}

	balances, err := m.svc.Balances(ctx.Context, request.Account)
	if err != nil {
		return nil, RpcErrorFromError(err)
	}

	return map[string]interface{}{
		"account":  request.Account,
		"balances": balances,
	}, nil
}

func (m *AccountBalancesMethod) RequiredRole() Role {
	return RoleGuest
}

// AccountSharesMethod handles the account_shares RPC method
type AccountSharesMethod struct {
	svc *service.Service
}

func (m *AccountSharesMethod) Handle(ctx *RpcContext, params json.RawMessage) (interface{}, *RpcError) {
	var request struct {
		Account string `json:"account"`
	}
	if rpcErr := unmarshalParams(params, &request); rpcErr != nil {
		return nil, rpcErr
	}

	if request.Account == "" {
		return nil, RpcErrorMissingField("account")
	}

	shares, err := m.svc.AccountShares(ctx.Context, request.Account)
	if err != nil {
		return nil, RpcErrorFromError(err)
	}

	return map[string]interface{}{
		"account": request.Account,
		"shares":  shares,
	}, nil
}

func (m *AccountSharesMethod) RequiredRole() Role {
	return RoleGuest
}

package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/roach88/factory/internal/ir"
)

// InstantiateMsg configures a new factory. Admin defaults to the sender.
type InstantiateMsg struct {
	Admin *string         `json:"admin,omitempty"`
	Code  ir.ContractCode `json:"code"`
}

// InstanceConfig is the payload of create_instance: the message forwarded
// to the child's instantiate entry point and the funds sent along with it.
type InstanceConfig[M any] struct {
	Msg   M         `json:"msg"`
	Funds []ir.Coin `json:"funds"`
}

// ChangeAdminMsg nominates a new admin.
type ChangeAdminMsg struct {
	Address string `json:"address"`
}

// SetStatusMsg changes the operational level.
type SetStatusMsg struct {
	Level      string `json:"level"`
	Reason     string `json:"reason"`
	NewAddress string `json:"new_address,omitempty"`
}

// ExecuteMsg is the factory's execute message. Exactly one field is set.
type ExecuteMsg[M any] struct {
	CreateInstance *InstanceConfig[M] `json:"create_instance,omitempty"`
	ChangeTemplate *ir.ContractCode   `json:"change_template,omitempty"`
	ChangeAdmin    *ChangeAdminMsg    `json:"change_admin,omitempty"`
	AcceptAdmin    *struct{}          `json:"accept_admin,omitempty"`
	SetStatus      *SetStatusMsg      `json:"set_status,omitempty"`
}

// ListInstancesMsg requests one page of the registry.
type ListInstancesMsg struct {
	Pagination ir.Pagination `json:"pagination"`
}

// InstanceByAddrMsg looks up a single child.
type InstanceByAddrMsg struct {
	Addr string `json:"addr"`
}

// QueryMsg is the factory's query message. Exactly one field is set.
type QueryMsg struct {
	ListInstances  *ListInstancesMsg  `json:"list_instances,omitempty"`
	InstanceByAddr *InstanceByAddrMsg `json:"instance_by_addr,omitempty"`
	Admin          *struct{}          `json:"admin,omitempty"`
	Status         *struct{}          `json:"status,omitempty"`
}

// AdminResponse answers the admin query.
type AdminResponse struct {
	Admin   string  `json:"admin"`
	Pending *string `json:"pending"`
}

// StatusResponse answers the status query.
type StatusResponse struct {
	Level      string `json:"level"`
	Reason     string `json:"reason"`
	NewAddress string `json:"new_address,omitempty"`
}

// decodeMsg strictly decodes an entry-point message into v. Unknown keys
// are rejected, and when v is a one-of envelope (a struct of pointers)
// exactly one variant must be present.
func decodeMsg(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return newError(CodeInvalidMessage, err, "decode %T", v)
	}
	if dec.More() {
		return newError(CodeInvalidMessage, nil, "trailing data after %T", v)
	}

	if n := setVariants(v); n >= 0 && n != 1 {
		return newError(CodeInvalidMessage, nil, "expected exactly one variant in %T, got %d", v, n)
	}
	return nil
}

// setVariants counts the non-nil pointer fields of an envelope struct.
// Returns -1 if v is not a pointer to a struct made only of pointers.
func setVariants(v any) int {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return -1
	}
	rv = rv.Elem()

	n := 0
	for i := range rv.NumField() {
		f := rv.Field(i)
		if f.Kind() != reflect.Pointer {
			return -1
		}
		if !f.IsNil() {
			n++
		}
	}
	return n
}

// ExecuteCreate builds a create_instance execute message.
func ExecuteCreate[M any](msg M, funds ...ir.Coin) (json.RawMessage, error) {
	if funds == nil {
		funds = []ir.Coin{}
	}
	return marshalMsg(ExecuteMsg[M]{CreateInstance: &InstanceConfig[M]{Msg: msg, Funds: funds}})
}

func marshalMsg(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return data, nil
}

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package hooks

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
)

// =========================================================================
// Permission Codec Tests
// =========================================================================

func TestEncodeDecodePermissions(t *testing.T) {
	tests := []struct {
		name        string
		permissions Permissions
		want        Flags
	}{
		{
			name:        "no permissions",
			permissions: Permissions{},
			want:        0,
		},
		{
			name:        "beforeSwap only",
			permissions: Permissions{BeforeSwap: true},
			want:        FlagBeforeSwap,
		},
		{
			name:        "swap hooks",
			permissions: Permissions{BeforeSwap: true, AfterSwap: true},
			want:        FlagBeforeSwap | FlagAfterSwap,
		},
		{
			name: "all hooks",
			permissions: Permissions{
				BeforeInitialize:      true,
				AfterInitialize:       true,
				BeforeModifyLiquidity: true,
				AfterModifyLiquidity:  true,
				BeforeSwap:            true,
				AfterSwap:             true,
				BeforeDonate:          true,
				AfterDonate:           true,
			},
			want: AllFlags,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := EncodePermissions(tt.permissions)
			if flags != tt.want {
				t.Errorf("EncodePermissions() = %s, want %s", flags, tt.want)
			}
			if decoded := DecodePermissions(flags); decoded != tt.permissions {
				t.Errorf("DecodePermissions() = %+v, want %+v", decoded, tt.permissions)
			}
		})
	}
}

func TestHandleCodec(t *testing.T) {
	base := common.HexToAddress("0x1234567890123456789012345678901234567890")
	flags := FlagBeforeSwap | FlagAfterSwap

	h := Encode(base, flags)
	if Decode(h) != flags {
		t.Errorf("Decode() = %s, want %s", Decode(h), flags)
	}
	if BaseOf(h) != base {
		t.Errorf("BaseOf() = %s, want %s", BaseOf(h).Hex(), base.Hex())
	}
	if !h.Supports(BeforeSwap) || h.Supports(BeforeDonate) {
		t.Error("Supports() does not match encoded flags")
	}
	if (Handle{Flags: AllFlags}).Supports(BeforeSwap) {
		t.Error("zero base must not support any point")
	}
}

func TestValidate(t *testing.T) {
	base := common.HexToAddress("0x1234567890123456789012345678901234567890")

	tests := []struct {
		name     string
		flags    Flags
		required Flags
		wantErr  bool
	}{
		{"nothing required", 0, 0, false},
		{"exact match", FlagBeforeSwap, FlagBeforeSwap, false},
		{"superset", FlagBeforeSwap | FlagAfterSwap, FlagAfterSwap, false},
		{"missing bit", FlagBeforeSwap, FlagBeforeSwap | FlagAfterSwap, true},
		{"disjoint", FlagBeforeDonate, FlagAfterInitialize, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(Encode(base, tt.flags), tt.required)
			if tt.wantErr {
				if !errors.Is(err, ErrHookNotPermitted) {
					t.Errorf("Validate() error = %v, want %v", err, ErrHookNotPermitted)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestParseFlags(t *testing.T) {
	flags, err := ParseFlags("beforeSwap|afterSwap")
	if err != nil {
		t.Fatalf("ParseFlags() error: %v", err)
	}
	if flags != FlagBeforeSwap|FlagAfterSwap {
		t.Errorf("ParseFlags() = %s", flags)
	}

	roundTrip, err := ParseFlags(AllFlags.String())
	if err != nil || roundTrip != AllFlags {
		t.Errorf("ParseFlags(String()) = %s, %v", roundTrip, err)
	}

	if none, err := ParseFlags("none"); err != nil || none != 0 {
		t.Errorf("ParseFlags(none) = %s, %v", none, err)
	}

	if _, err := ParseFlags("beforeSwap,beforeFlash"); !errors.Is(err, ErrUnknownPoint) {
		t.Errorf("expected ErrUnknownPoint, got %v", err)
	}
}

func TestPointSelectors(t *testing.T) {
	seen := make(map[Selector]Point)
	for _, p := range points {
		sel := p.Selector()
		if prev, dup := seen[sel]; dup {
			t.Errorf("%s and %s share selector %x", p, prev, sel)
		}
		seen[sel] = p
		if p.Flag() == 0 {
			t.Errorf("%s has no flag bit", p)
		}
	}
	if BeforeSwap.IsAfter() || !AfterSwap.IsAfter() {
		t.Error("IsAfter() mismatch")
	}
}

func TestGenerateHandle(t *testing.T) {
	deployer := common.HexToAddress("0x00000000000000000000000000000000000de901")
	salt := [32]byte{1, 2, 3}
	perms := Permissions{BeforeSwap: true, AfterSwap: true}

	h1 := GenerateHandle(deployer, salt, perms)
	h2 := GenerateHandle(deployer, salt, perms)
	if h1 != h2 {
		t.Error("GenerateHandle must be deterministic")
	}
	if h1.IsZero() {
		t.Error("generated handle is zero")
	}
	if h1.Permissions() != perms {
		t.Errorf("Permissions() = %+v, want %+v", h1.Permissions(), perms)
	}

	other := GenerateHandle(deployer, [32]byte{9}, perms)
	if other.Base == h1.Base {
		t.Error("different salts produced the same base")
	}
}

// =========================================================================
// Registry Tests
// =========================================================================

type declaringHook struct {
	BaseHook
	perms Permissions
}

func (d declaringHook) Permissions() Permissions { return d.perms }

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	h := GenerateHandle(common.Address{1}, [32]byte{1}, Permissions{BeforeSwap: true})

	if err := r.Register(h, BaseHook{}); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := r.Register(h, BaseHook{}); !errors.Is(err, ErrHookAlreadyRegistered) {
		t.Errorf("expected ErrHookAlreadyRegistered, got %v", err)
	}

	hook, err := r.Resolve(h)
	if err != nil || hook == nil {
		t.Fatalf("Resolve() = %v, %v", hook, err)
	}

	tampered := Encode(h.Base, AllFlags)
	if _, err := r.Resolve(tampered); !errors.Is(err, ErrHookInvalidHandle) {
		t.Errorf("expected ErrHookInvalidHandle, got %v", err)
	}

	if _, err := r.Resolve(Encode(common.Address{2}, FlagBeforeSwap)); !errors.Is(err, ErrHookNotRegistered) {
		t.Errorf("expected ErrHookNotRegistered, got %v", err)
	}

	if flags, ok := r.Flags(h.Base); !ok || flags != FlagBeforeSwap {
		t.Errorf("Flags() = %s, %v", flags, ok)
	}
}

func TestRegistryRejectsMismatchedDeclaration(t *testing.T) {
	r := NewRegistry()
	h := Encode(common.Address{3}, FlagBeforeSwap|FlagAfterSwap)

	err := r.Register(h, declaringHook{perms: Permissions{BeforeSwap: true}})
	if !errors.Is(err, ErrHookInvalidHandle) {
		t.Errorf("expected ErrHookInvalidHandle, got %v", err)
	}

	err = r.Register(h, declaringHook{perms: Permissions{BeforeSwap: true, AfterSwap: true}})
	if err != nil {
		t.Errorf("Register() error: %v", err)
	}

	if err := r.Register(Handle{}, BaseHook{}); !errors.Is(err, ErrZeroHandle) {
		t.Errorf("expected ErrZeroHandle, got %v", err)
	}
}

// =========================================================================
// Pipeline Tests
// =========================================================================

type recordingHook struct {
	BaseHook
	calls   []Point
	veto    error
	badSel  bool
	feeBump bool
}

func (r *recordingHook) BeforeSwap(_ context.Context, call *Call) (Outcome, error) {
	r.calls = append(r.calls, call.Point)
	if r.veto != nil {
		return Outcome{}, r.veto
	}
	if r.badSel {
		return Pass(AfterSwap), nil
	}
	if r.feeBump {
		return WithFee(5000), nil
	}
	return Pass(BeforeSwap), nil
}

func (r *recordingHook) AfterSwap(_ context.Context, call *Call) (Outcome, error) {
	r.calls = append(r.calls, call.Point)
	if r.feeBump {
		return Outcome{Selector: SigAfterSwap, Fee: 1, OverrideFee: true}, nil
	}
	return Pass(AfterSwap), nil
}

func TestPipelineDispatch(t *testing.T) {
	ctx := context.Background()
	p := NewPipeline(nil)
	handle := Encode(common.Address{7}, FlagBeforeSwap)

	t.Run("zero handle is a no-op", func(t *testing.T) {
		out, err := p.Dispatch(ctx, BeforeSwap, Handle{}, AllFlags, nil, &Call{})
		if err != nil || out.Selector != SigBeforeSwap {
			t.Errorf("Dispatch() = %+v, %v", out, err)
		}
	})

	t.Run("invokes claimed point", func(t *testing.T) {
		hook := &recordingHook{}
		if _, err := p.Dispatch(ctx, BeforeSwap, handle, FlagBeforeSwap, hook, &Call{}); err != nil {
			t.Fatalf("Dispatch() error: %v", err)
		}
		if len(hook.calls) != 1 || hook.calls[0] != BeforeSwap {
			t.Errorf("calls = %v", hook.calls)
		}
	})

	t.Run("skips unclaimed optional point", func(t *testing.T) {
		hook := &recordingHook{}
		if _, err := p.Dispatch(ctx, AfterSwap, handle, FlagBeforeSwap, hook, &Call{}); err != nil {
			t.Fatalf("Dispatch() error: %v", err)
		}
		if len(hook.calls) != 0 {
			t.Errorf("unclaimed point was invoked: %v", hook.calls)
		}
	})

	t.Run("unclaimed required point", func(t *testing.T) {
		_, err := p.Dispatch(ctx, AfterSwap, handle, FlagAfterSwap, &recordingHook{}, &Call{})
		if !errors.Is(err, ErrHookNotPermitted) {
			t.Errorf("expected ErrHookNotPermitted, got %v", err)
		}
	})

	t.Run("missing implementation", func(t *testing.T) {
		_, err := p.Dispatch(ctx, BeforeSwap, handle, 0, nil, &Call{})
		if !errors.Is(err, ErrHookNotRegistered) {
			t.Errorf("expected ErrHookNotRegistered, got %v", err)
		}
	})

	t.Run("veto propagates", func(t *testing.T) {
		veto := errors.New("paused")
		_, err := p.Dispatch(ctx, BeforeSwap, handle, 0, &recordingHook{veto: veto}, &Call{})
		if !errors.Is(err, veto) {
			t.Errorf("expected veto error, got %v", err)
		}
	})

	t.Run("wrong selector", func(t *testing.T) {
		_, err := p.Dispatch(ctx, BeforeSwap, handle, 0, &recordingHook{badSel: true}, &Call{})
		if !errors.Is(err, ErrInvalidHookResponse) {
			t.Errorf("expected ErrInvalidHookResponse, got %v", err)
		}
	})

	t.Run("fee override", func(t *testing.T) {
		out, err := p.Dispatch(ctx, BeforeSwap, handle, 0, &recordingHook{feeBump: true}, &Call{})
		if err != nil {
			t.Fatalf("Dispatch() error: %v", err)
		}
		if !out.OverrideFee || out.Fee != 5000 {
			t.Errorf("Outcome = %+v", out)
		}

		both := Encode(common.Address{7}, FlagBeforeSwap|FlagAfterSwap)
		_, err = p.Dispatch(ctx, AfterSwap, both, 0, &recordingHook{feeBump: true}, &Call{})
		if !errors.Is(err, ErrFeeOverrideNotAllowed) {
			t.Errorf("expected ErrFeeOverrideNotAllowed, got %v", err)
		}
	})
}

func TestBaseHookPassesThrough(t *testing.T) {
	ctx := context.Background()
	p := NewPipeline(nil)
	handle := Encode(common.Address{8}, AllFlags)

	for _, point := range points {
		out, err := p.Dispatch(ctx, point, handle, AllFlags, BaseHook{}, &Call{})
		if err != nil {
			t.Errorf("%s: unexpected error: %v", point, err)
		}
		if out.Selector != point.Selector() || out.OverrideFee {
			t.Errorf("%s: outcome = %+v", point, out)
		}
	}
}

func TestBalanceDelta(t *testing.T) {
	zero := ZeroBalanceDelta()
	if !zero.IsZero() {
		t.Error("ZeroBalanceDelta() is not zero")
	}

	d := NewBalanceDelta(bigInt(100), bigInt(-40))
	sum := d.Add(d.Negate())
	if !sum.IsZero() {
		t.Errorf("d + -d = %v, %v", sum.AmountA, sum.AmountB)
	}
}

func TestCommitQueue(t *testing.T) {
	var ran []int
	record := func(i int) func() { return func() { ran = append(ran, i) } }

	// no queue: effects run at once
	OnCommit(context.Background(), record(0))
	if len(ran) != 1 {
		t.Fatalf("OnCommit without queue ran %d effects, want 1", len(ran))
	}

	ctx, q := WithCommitQueue(context.Background())
	OnCommit(ctx, record(1))
	OnCommit(ctx, record(2))
	if len(ran) != 1 {
		t.Fatal("queued effect ran before commit")
	}
	q.Run()
	if len(ran) != 3 || ran[1] != 1 || ran[2] != 2 {
		t.Errorf("Run() order = %v, want [0 1 2]", ran)
	}
	q.Run()
	if len(ran) != 3 {
		t.Error("Run() repeated effects")
	}

	OnCommit(ctx, record(3))
	q.Discard()
	q.Run()
	if len(ran) != 3 {
		t.Error("discarded effect ran")
	}
}

func bigInt(v int64) *big.Int {
	return big.NewInt(v)
}

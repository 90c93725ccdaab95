// Package policy runs an optional user-supplied WASM approval hook over
// serialized transactions before they are signed. A module exports
// alloc(size) -> ptr and approve(ptr, len) -> i32; zero approves, any other
// value vetoes the send.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bytecodealliance/wasmtime-go/v30"
)

// Config contains limits for policy execution.
type Config struct {
	// MaxMemoryMB bounds a policy instance's linear memory.
	MaxMemoryMB int

	// Timeout bounds one approve call.
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxMemoryMB: 16,
		Timeout:     100 * time.Millisecond,
	}
}

// Engine compiles and runs policy modules using wasmtime. Compiled modules
// are cached by name.
type Engine struct {
	cfg    Config
	engine *wasmtime.Engine
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*wasmtime.Module
}

// NewEngine creates a policy engine with epoch interruption enabled so a
// runaway policy cannot stall the send path.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	engineCfg := wasmtime.NewConfig()
	engineCfg.SetEpochInterruption(true)

	return &Engine{
		cfg:    cfg,
		engine: wasmtime.NewEngineWithConfig(engineCfg),
		logger: logger.With("component", "policy"),
		cache:  make(map[string]*wasmtime.Module),
	}
}

// Load compiles and caches a policy module.
func (e *Engine) Load(name string, wasmBytes []byte) error {
	module, err := wasmtime.NewModule(e.engine, wasmBytes)
	if err != nil {
		return fmt.Errorf("compile policy %s: %w", name, err)
	}
	e.mu.Lock()
	e.cache[name] = module
	e.mu.Unlock()
	e.logger.Info("policy loaded", "policy", name, "size_bytes", len(wasmBytes))
	return nil
}

// Loaded reports whether a policy with this name is available.
func (e *Engine) Loaded(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.cache[name]
	return ok
}

// Check runs the named policy over the serialized transaction. A missing
// policy approves; the zero verdict approves; anything else vetoes.
func (e *Engine) Check(ctx context.Context, name string, rawTx []byte) error {
	e.mu.RLock()
	module, ok := e.cache[name]
	e.mu.RUnlock()
	if !ok {
		return nil
	}

	verdict, err := e.run(ctx, module, rawTx)
	if err != nil {
		return fmt.Errorf("policy %s: %w", name, err)
	}
	if verdict != 0 {
		return fmt.Errorf("policy %s vetoed transaction (verdict %d)", name, verdict)
	}
	return nil
}

func (e *Engine) run(ctx context.Context, module *wasmtime.Module, input []byte) (int32, error) {
	store := wasmtime.NewStore(e.engine)
	defer store.Close()

	store.Limiter(int64(e.cfg.MaxMemoryMB)*1024*1024, -1, 1, 1, 1)
	store.SetEpochDeadline(1)

	done := make(chan struct{})
	defer close(done)
	go e.epochIncrementer(ctx, done)

	instance, err := wasmtime.NewInstance(store, module, nil)
	if err != nil {
		return 0, fmt.Errorf("instantiate: %w", err)
	}

	memExport := instance.GetExport(store, "memory")
	if memExport == nil || memExport.Memory() == nil {
		return 0, fmt.Errorf("policy exports no memory")
	}
	memory := memExport.Memory()

	alloc := instance.GetFunc(store, "alloc")
	approve := instance.GetFunc(store, "approve")
	if alloc == nil || approve == nil {
		return 0, fmt.Errorf("policy must export alloc and approve")
	}

	ptrVal, err := alloc.Call(store, int32(len(input)))
	if err != nil {
		return 0, fmt.Errorf("alloc: %w", err)
	}
	ptr, ok := ptrVal.(int32)
	if !ok {
		return 0, fmt.Errorf("alloc returned no pointer")
	}

	data := memory.UnsafeData(store)
	if int(ptr)+len(input) > len(data) {
		return 0, fmt.Errorf("alloc pointer out of bounds")
	}
	copy(data[ptr:int(ptr)+len(input)], input)

	result, err := approve.Call(store, ptr, int32(len(input)))
	if err != nil {
		if trap, ok := err.(*wasmtime.Trap); ok && trap.Code() != nil && *trap.Code() == wasmtime.Interrupt {
			return 0, fmt.Errorf("policy timeout after %s", e.cfg.Timeout)
		}
		return 0, fmt.Errorf("approve: %w", err)
	}

	verdict, ok := result.(int32)
	if !ok {
		return 0, fmt.Errorf("approve returned no verdict")
	}
	return verdict, nil
}

// epochIncrementer interrupts the store once the timeout elapses.
func (e *Engine) epochIncrementer(ctx context.Context, done <-chan struct{}) {
	timer := time.NewTimer(e.cfg.Timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		e.engine.IncrementEpoch()
	case <-ctx.Done():
		e.engine.IncrementEpoch()
	case <-done:
	}
}

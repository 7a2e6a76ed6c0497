package wallet

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// ConnState — состояние подключения для одного семейства.
// Disconnected → Connecting → Connected → Disconnected.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// Observer получает уведомления о смене активного подключения.
// conn == nil означает отключение.
type Observer func(family ChainFamily, conn *Connection)

type familySlot struct {
	state    ConnState
	conn     *Connection
	provider Provider
}

// Manager держит по одному активному подключению на семейство.
// Hedera и Cardano независимы; внутри семейства действует
// last-connect-wins: успешный connect нового кошелька вытесняет старый.
type Manager struct {
	registry *Registry
	log      *zap.Logger

	mu        sync.Mutex
	slots     map[ChainFamily]*familySlot
	observers []Observer
}

func NewManager(registry *Registry, log *zap.Logger) *Manager {
	return &Manager{
		registry: registry,
		log:      log,
		slots:    make(map[ChainFamily]*familySlot),
	}
}

func (m *Manager) Subscribe(obs Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, obs)
}

// Connect подключает кошелёк providerID. Пока семейство в Connecting,
// второй connect того же семейства отклоняется — конкурирующих попыток
// не бывает. Ошибка адаптера пробрасывается без переупаковки, чтобы не
// потерять исходный код.
func (m *Manager) Connect(ctx context.Context, providerID string) (*Connection, error) {
	provider, ok := m.registry.Get(providerID)
	if !ok {
		return nil, NewErrorf(ErrNotInstalled, "unknown wallet provider %q", providerID)
	}
	family := provider.Family()

	m.mu.Lock()
	slot := m.slots[family]
	if slot != nil && slot.state == StateConnecting {
		m.mu.Unlock()
		return nil, NewErrorf(ErrUnknown, "%s connect already in progress", family)
	}
	prev := (*familySlot)(nil)
	if slot != nil && slot.state == StateConnected {
		prev = slot
	}
	m.slots[family] = &familySlot{state: StateConnecting}
	m.mu.Unlock()

	conn, err := provider.Connect(ctx)
	if err != nil {
		// Неудача возвращает семейство в прежнее состояние.
		m.mu.Lock()
		if prev != nil {
			m.slots[family] = prev
		} else {
			m.slots[family] = &familySlot{state: StateDisconnected}
		}
		m.mu.Unlock()
		return nil, err
	}

	m.mu.Lock()
	m.slots[family] = &familySlot{state: StateConnected, conn: conn, provider: provider}
	obs := append([]Observer(nil), m.observers...)
	m.mu.Unlock()

	m.log.Info("wallet connected",
		zap.String("family", string(family)),
		zap.String("provider", providerID),
		zap.String("address", conn.Address),
	)

	for _, o := range obs {
		o(family, conn)
	}
	return conn, nil
}

// Disconnect идемпотентен: для уже отключённого семейства это no-op.
func (m *Manager) Disconnect(family ChainFamily) {
	m.mu.Lock()
	slot := m.slots[family]
	if slot == nil || slot.state != StateConnected {
		m.mu.Unlock()
		return
	}
	m.slots[family] = &familySlot{state: StateDisconnected}
	obs := append([]Observer(nil), m.observers...)
	m.mu.Unlock()

	m.log.Info("wallet disconnected", zap.String("family", string(family)))
	for _, o := range obs {
		o(family, nil)
	}
}

// Connected возвращает активное подключение семейства или nil.
// Чистое чтение, без побочных эффектов.
func (m *Manager) Connected(family ChainFamily) *Connection {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot := m.slots[family]; slot != nil && slot.state == StateConnected {
		return slot.conn
	}
	return nil
}

func (m *Manager) State(family ChainFamily) ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot := m.slots[family]; slot != nil {
		return slot.state
	}
	return StateDisconnected
}

// ProviderFor возвращает провайдера активного подключения семейства.
func (m *Manager) ProviderFor(family ChainFamily) (Provider, *Connection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot := m.slots[family]
	if slot == nil || slot.state != StateConnected {
		return nil, nil, false
	}
	return slot.provider, slot.conn, true
}

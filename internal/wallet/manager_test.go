package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
)

// fakeProvider — минимальный провайдер для проверки менеджера: сам
// кошелёк здесь не важен, важна дисциплина слотов.
type fakeProvider struct {
	id      string
	family  ChainFamily
	conn    *Connection
	connErr error

	mu       sync.Mutex
	started  chan struct{}
	release  chan struct{}
	connects int
}

func (f *fakeProvider) ID() string          { return f.id }
func (f *fakeProvider) Family() ChainFamily { return f.family }

func (f *fakeProvider) IsAvailable(context.Context) bool { return true }

func (f *fakeProvider) Connect(ctx context.Context) (*Connection, error) {
	f.mu.Lock()
	f.connects++
	f.mu.Unlock()
	if f.started != nil {
		close(f.started)
		<-f.release
	}
	if f.connErr != nil {
		return nil, f.connErr
	}
	return f.conn, nil
}

func (f *fakeProvider) SignMessage(context.Context, string) (*SignatureResult, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeProvider) BuildAndSign(context.Context, TxIntent) (*SignedTx, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeProvider) Submit(context.Context, *SignedTx) (*SubmitResult, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeProvider) GetBalance(context.Context) (*Balance, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeProvider) GetAssets(context.Context) ([]Asset, error) {
	return nil, errors.New("not implemented")
}
func (f *fakeProvider) GetTokenInfo(context.Context, string, string) (*TokenInfo, error) {
	return nil, ErrTokenNotFound
}
func (f *fakeProvider) EstimateFee(context.Context, TxIntent) (string, error) {
	return "0", errors.New("not implemented")
}
func (f *fakeProvider) ValidateAddress(string) bool { return true }

func hederaFake(id, address string) *fakeProvider {
	return &fakeProvider{
		id:     id,
		family: FamilyHedera,
		conn:   &Connection{Family: FamilyHedera, ProviderID: id, Address: address},
	}
}

func TestManagerConnectDisconnect(t *testing.T) {
	p := hederaFake("hashpack", "0.0.1001")
	m := NewManager(NewRegistry(p), zap.NewNop())

	if m.State(FamilyHedera) != StateDisconnected {
		t.Fatal("expected disconnected initially")
	}

	conn, err := m.Connect(context.Background(), "hashpack")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if conn.Address != "0.0.1001" {
		t.Fatalf("address = %q", conn.Address)
	}
	if m.State(FamilyHedera) != StateConnected {
		t.Fatal("expected connected")
	}

	m.Disconnect(FamilyHedera)
	if m.Connected(FamilyHedera) != nil {
		t.Fatal("expected nil connection after disconnect")
	}
	// Повторный disconnect — no-op, не паника и не ошибка.
	m.Disconnect(FamilyHedera)
}

func TestManagerFamiliesIndependent(t *testing.T) {
	h := hederaFake("hashpack", "0.0.1001")
	c := &fakeProvider{
		id:     "nami",
		family: FamilyCardano,
		conn:   &Connection{Family: FamilyCardano, ProviderID: "nami", Address: "addr_test1xyz"},
	}
	m := NewManager(NewRegistry(h, c), zap.NewNop())

	if _, err := m.Connect(context.Background(), "hashpack"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Connect(context.Background(), "nami"); err != nil {
		t.Fatal(err)
	}

	// Отключение hedera не трогает cardano.
	m.Disconnect(FamilyHedera)
	if m.Connected(FamilyCardano) == nil {
		t.Fatal("cardano connection lost on hedera disconnect")
	}
}

func TestManagerLastConnectWins(t *testing.T) {
	a := hederaFake("hashpack", "0.0.1001")
	b := hederaFake("blade", "0.0.2002")
	m := NewManager(NewRegistry(a, b), zap.NewNop())

	if _, err := m.Connect(context.Background(), "hashpack"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Connect(context.Background(), "blade"); err != nil {
		t.Fatal(err)
	}

	conn := m.Connected(FamilyHedera)
	if conn == nil || conn.ProviderID != "blade" {
		t.Fatalf("expected blade to win, got %+v", conn)
	}
}

func TestManagerFailedConnectKeepsPrevious(t *testing.T) {
	a := hederaFake("hashpack", "0.0.1001")
	b := hederaFake("blade", "0.0.2002")
	b.connErr = NewError(ErrUserRejected, "user rejected the request")
	m := NewManager(NewRegistry(a, b), zap.NewNop())

	if _, err := m.Connect(context.Background(), "hashpack"); err != nil {
		t.Fatal(err)
	}

	_, err := m.Connect(context.Background(), "blade")
	if !IsCode(err, ErrUserRejected) {
		t.Fatalf("expected USER_REJECTED passed through, got %v", err)
	}

	// Неудачная попытка не рвёт существующее подключение.
	conn := m.Connected(FamilyHedera)
	if conn == nil || conn.ProviderID != "hashpack" {
		t.Fatalf("expected hashpack to survive, got %+v", conn)
	}
}

func TestManagerRejectsConcurrentConnect(t *testing.T) {
	slow := hederaFake("hashpack", "0.0.1001")
	slow.started = make(chan struct{})
	slow.release = make(chan struct{})
	fast := hederaFake("blade", "0.0.2002")
	m := NewManager(NewRegistry(slow, fast), zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := m.Connect(context.Background(), "hashpack")
		done <- err
	}()
	<-slow.started

	// Пока первый connect висит на одобрении, второй отклоняется сразу.
	if _, err := m.Connect(context.Background(), "blade"); err == nil {
		t.Fatal("expected concurrent connect rejection")
	}
	if fast.connects != 0 {
		t.Fatal("second provider must not be invoked")
	}

	close(slow.release)
	if err := <-done; err != nil {
		t.Fatalf("first connect: %v", err)
	}
	if m.Connected(FamilyHedera).ProviderID != "hashpack" {
		t.Fatal("first connect did not land")
	}
}

func TestManagerObserverNotified(t *testing.T) {
	p := hederaFake("hashpack", "0.0.1001")
	m := NewManager(NewRegistry(p), zap.NewNop())

	var got []*Connection
	m.Subscribe(func(_ ChainFamily, conn *Connection) {
		got = append(got, conn)
	})

	if _, err := m.Connect(context.Background(), "hashpack"); err != nil {
		t.Fatal(err)
	}
	m.Disconnect(FamilyHedera)

	if len(got) != 2 || got[0] == nil || got[1] != nil {
		t.Fatalf("unexpected notifications: %+v", got)
	}
}

func TestManagerUnknownProvider(t *testing.T) {
	m := NewManager(NewRegistry(), zap.NewNop())
	_, err := m.Connect(context.Background(), "ghost")
	if !IsCode(err, ErrNotInstalled) {
		t.Fatalf("expected NOT_INSTALLED, got %v", err)
	}
}

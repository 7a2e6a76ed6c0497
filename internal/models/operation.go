package models

// Статусы токен-операции. Машина линейная и нереентерабельная:
// validating → building → signing → submitting → success|error,
// из любого шага возможен только переход вперёд или в error.
const (
	OpStatusIdle       = "idle"
	OpStatusValidating = "validating"
	OpStatusBuilding   = "building"
	OpStatusSigning    = "signing"
	OpStatusSubmitting = "submitting"
	OpStatusSuccess    = "success"
	OpStatusError      = "error"
)

var opTransitions = map[string][]string{
	OpStatusIdle:       {OpStatusValidating},
	OpStatusValidating: {OpStatusBuilding, OpStatusError},
	OpStatusBuilding:   {OpStatusSigning, OpStatusError},
	OpStatusSigning:    {OpStatusSubmitting, OpStatusError},
	OpStatusSubmitting: {OpStatusSuccess, OpStatusError},
	// Терминальные статусы возвращают машину в idle: повтор — всегда
	// новое намерение, не переигрывание отклонённого.
	OpStatusSuccess: {OpStatusIdle},
	OpStatusError:   {OpStatusIdle},
}

func IsValidOpTransition(from, to string) bool {
	for _, next := range opTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

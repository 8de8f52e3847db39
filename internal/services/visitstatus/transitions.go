package visitstatus

import "github.com/magabrotheeeer/salon-redemption-ledger/internal/models"

// transition — допустимый переход статуса визита.
type transition struct {
	from models.VisitStatus
	to   models.VisitStatus
}

// validTransitions задаёт конечный автомат визита. CANCELLED — терминальный
// статус; COMPLETED терминален, кроме отмены, возвращающей единицу.
var validTransitions = map[transition]bool{
	{models.VisitPending, models.VisitConfirmed}:   true,
	{models.VisitPending, models.VisitCompleted}:   true,
	{models.VisitPending, models.VisitCancelled}:   true,
	{models.VisitConfirmed, models.VisitCompleted}: true,
	{models.VisitConfirmed, models.VisitCancelled}: true,
	{models.VisitCompleted, models.VisitCancelled}: true,
}

// CanTransition сообщает, допустим ли переход между статусами визита.
func CanTransition(from, to models.VisitStatus) bool {
	return validTransitions[transition{from, to}]
}

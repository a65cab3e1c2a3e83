package repository

// Repositories bundles every repository over one connection.
type Repositories struct {
	Users      *UserRepository
	Clubs      *ClubRepository
	Ledger     *LedgerRepository
	Events     *EventRepository
	Challenges *ChallengeRepository
	Tasks      *TaskRepository
	Polls      *PollRepository
	Projects   *ProjectRepository
	Periods    *PeriodRepository
}

// NewRepositories creates all repositories for db.
func NewRepositories(db *DB) *Repositories {
	return &Repositories{
		Users:      NewUserRepository(db),
		Clubs:      NewClubRepository(db),
		Ledger:     NewLedgerRepository(db),
		Events:     NewEventRepository(db),
		Challenges: NewChallengeRepository(db),
		Tasks:      NewTaskRepository(db),
		Polls:      NewPollRepository(db),
		Projects:   NewProjectRepository(db),
		Periods:    NewPeriodRepository(db),
	}
}

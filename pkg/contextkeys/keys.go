package contextkeys

type contextKey string

// ActorKey - имя пользователя, выполняющего действие (из JWT), если оно известно.
const ActorKey contextKey = "Actor"

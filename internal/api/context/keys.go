package context

type Key string

const (
	Identity Key = "identity"
	Profile  Key = "profile"
	Params   Key = "params"
)

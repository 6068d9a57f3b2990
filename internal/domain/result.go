package domain

// Result is the platform's completion code for an asynchronous call.
type Result int

const (
	ResultSuccess Result = iota
	ResultInvalidCredentials
	ResultPersistentAuthNotFound
	ResultInvalidUser
	ResultInvalidParameters
	ResultNotFound
	ResultNotConfigured
	ResultNoConnection
	ResultLimitExceeded
	ResultNotOwner
	ResultAlreadyPending
	ResultCanceled
	ResultUnexpectedError
)

var resultNames = map[Result]string{
	ResultSuccess:                "Success",
	ResultInvalidCredentials:     "InvalidCredentials",
	ResultPersistentAuthNotFound: "PersistentAuthNotFound",
	ResultInvalidUser:            "InvalidUser",
	ResultInvalidParameters:      "InvalidParameters",
	ResultNotFound:               "NotFound",
	ResultNotConfigured:          "NotConfigured",
	ResultNoConnection:           "NoConnection",
	ResultLimitExceeded:          "LimitExceeded",
	ResultNotOwner:               "NotOwner",
	ResultAlreadyPending:         "AlreadyPending",
	ResultCanceled:               "Canceled",
	ResultUnexpectedError:        "UnexpectedError",
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return "UnknownResult"
}

func (r Result) OK() bool {
	return r == ResultSuccess
}

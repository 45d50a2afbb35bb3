package flow

type State int

const (
	Idle State = iota
	AwaitingPermission
	AwaitingCredentials
	Uploading
	BuildingURL
	CheckingAvailability
	Downloading
	Verifying
	Done
	Failed
)

var stateNames = map[State]string{
	Idle:                 "idle",
	AwaitingPermission:   "awaiting_permission",
	AwaitingCredentials:  "awaiting_credentials",
	Uploading:            "uploading",
	BuildingURL:          "building_url",
	CheckingAvailability: "checking_availability",
	Downloading:          "downloading",
	Verifying:            "verifying",
	Done:                 "done",
	Failed:               "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

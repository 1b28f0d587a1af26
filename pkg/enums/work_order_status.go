package enums

// WorkOrderStatus tracks a work order through its lifecycle.
type WorkOrderStatus string

const (
	WorkOrderStatusSubmitted  WorkOrderStatus = "submitted"
	WorkOrderStatusAccepted   WorkOrderStatus = "accepted"
	WorkOrderStatusInProgress WorkOrderStatus = "in_progress"
	WorkOrderStatusCompleted  WorkOrderStatus = "completed"
	WorkOrderStatusCancelled  WorkOrderStatus = "cancelled"
)

var validWorkOrderStatuses = []WorkOrderStatus{
	WorkOrderStatusSubmitted,
	WorkOrderStatusAccepted,
	WorkOrderStatusInProgress,
	WorkOrderStatusCompleted,
	WorkOrderStatusCancelled,
}

func (s WorkOrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known WorkOrderStatus.
func (s WorkOrderStatus) IsValid() bool {
	for _, candidate := range validWorkOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

package enum

type EntityType string

const (
	EMAIL         EntityType = "EMAIL"
	ACCOUNT       EntityType = "ACCOUNT"
	REPLY_CONTEXT EntityType = "REPLY_CONTEXT"
)

func (entityType EntityType) String() string {
	return string(entityType)
}

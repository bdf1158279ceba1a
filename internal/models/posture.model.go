package models

type Posture struct {
	ID   int    `gorm:"type:int;primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(64);not null"         json:"name"`
}

func (Posture) TableName() string {
	return "postures"
}

// DefaultPostures is the fixed reference data every database carries.
var DefaultPostures = []Posture{
	{ID: 1, Name: "Sitting"},
	{ID: 2, Name: "Standing"},
	{ID: 3, Name: "Lying"},
}

package models

import (
	"log"

	"github.com/bwmarrin/snowflake"
)

var orderNumberNode *snowflake.Node

func init() {
	node, err := snowflake.NewNode(1)
	if err != nil {
		log.Fatalf("snowflake node init failed: %v", err)
	}
	orderNumberNode = node
}

// SetOrderNumberNode pins the snowflake node id so several instances never
// hand out the same order number.
func SetOrderNumberNode(id int64) error {
	node, err := snowflake.NewNode(id)
	if err != nil {
		return err
	}
	orderNumberNode = node
	return nil
}

// NewOrderNumber returns a sortable human order reference such as "ORD1541815603606036480".
func NewOrderNumber() string {
	return "ORD" + orderNumberNode.Generate().String()
}

package dataobj

import "github.com/yborm/yborm-go/schema"

// findRelationOwningClass resolves propertyName on className through
// the Session's Schema, with sideOfA selecting whether className must
// be the master (true) or slave (false) side of the match (spec §3
// Schema.find_relation).
func findRelationOwningClass(sess Session, className, propertyName string, sideOfA bool) (*schema.Relation, error) {
	return sess.Schema().FindRelation(className, propertyName, "", sideOfA)
}

// relations.go: persistence of the derived principal/auxiliary relation table
package datastore

import (
	"fmt"

	"gorm.io/gorm"
)

// GetDerivedRelations returns the currently persisted ML relation table.
func (ds *DataStore) GetDerivedRelations() ([]DerivedRelation, error) {
	var rows []DerivedRelation
	if err := ds.DB.Order("principal_tag ASC, auxiliary_tag ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading derived relations: %w", err)
	}
	return rows, nil
}

// ApplyRelationSync adds and removes relation rows in one transaction. The
// caller decides the diff; this only applies it atomically.
func (ds *DataStore) ApplyRelationSync(toAdd, toRemove []DerivedRelation) error {
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return nil
	}
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		for i := range toAdd {
			if err := tx.Create(&toAdd[i]).Error; err != nil {
				return fmt.Errorf("adding relation %s->%s: %w", toAdd[i].PrincipalTag, toAdd[i].AuxiliaryTag, err)
			}
		}
		for i := range toRemove {
			err := tx.Where("principal_tag = ? AND auxiliary_tag = ?",
				toRemove[i].PrincipalTag, toRemove[i].AuxiliaryTag).
				Delete(&DerivedRelation{}).Error
			if err != nil {
				return fmt.Errorf("removing relation %s->%s: %w", toRemove[i].PrincipalTag, toRemove[i].AuxiliaryTag, err)
			}
		}

		getLogger().Info("relation sync applied",
			"added", len(toAdd), "removed", len(toRemove))
		return nil
	})
}

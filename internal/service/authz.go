package service

import "stockpile/internal/models"

// CanMutate reports whether the actor may edit or delete the inventory
// and its items. Only the owner and admins qualify.
func CanMutate(actor models.Actor, inv *models.Inventory) bool {
	if !actor.Authenticated() {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	return inv.OwnerID == actor.UserID
}

// CanCreateItem reports whether the actor may add items to an inventory.
// Deliberately wider than CanMutate: any authenticated actor may contribute
// items, ownership only gates editing and deletion.
func CanCreateItem(actor models.Actor) bool {
	return actor.Authenticated()
}

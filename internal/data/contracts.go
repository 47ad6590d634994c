package data

import (
	"context"
	"fmt"

	"github.com/rentledger/rentledger/internal/docstore"
	"github.com/rentledger/rentledger/internal/models"
)

// ========== Contract Methods ==========

// SaveContract stores a new contract and returns its id. An empty status
// defaults to active. When the single-open-contract rule is in force,
// saving an open contract for a room that already has one fails with
// ErrContractConflict.
func (s *Service) SaveContract(ctx context.Context, contract models.Contract) (string, error) {
	uid, err := s.uid(ctx)
	if err != nil {
		return "", err
	}

	if contract.Status == "" {
		contract.Status = models.ContractStatusActive
	}
	if contract.Type == "" {
		contract.Type = models.ContractTypeFixedTerm
	}
	contract.CreatedAt = nowISO()
	contract.UpdatedAt = contract.CreatedAt

	if s.cfg.SingleActiveContract() && contract.IsOpen() {
		if err := s.checkRoomFree(ctx, uid, contract.RoomID, contract.ID); err != nil {
			return "", err
		}
	}

	data, err := docstore.Encode(contract)
	if err != nil {
		return "", fmt.Errorf("encode contract: %w", err)
	}

	if contract.ID != "" {
		if err := s.store.Set(ctx, uid, docstore.CollectionContracts, contract.ID, data); err != nil {
			return "", err
		}
		return contract.ID, nil
	}
	return s.store.Add(ctx, uid, docstore.CollectionContracts, data)
}

// checkRoomFree fails with ErrContractConflict when another open contract
// exists for the room.
func (s *Service) checkRoomFree(ctx context.Context, uid, roomID, excludeID string) error {
	docs, err := s.store.Query(ctx, uid, docstore.CollectionContracts, docstore.Query{
		FilterField: "roomId",
		FilterValue: roomID,
	})
	if err != nil {
		return fmt.Errorf("query contracts for room %s: %w", roomID, err)
	}

	for _, doc := range docs {
		if doc.ID == excludeID {
			continue
		}
		var existing models.Contract
		if err := doc.DecodeInto(&existing); err != nil {
			return fmt.Errorf("decode contract %s: %w", doc.ID, err)
		}
		if existing.IsOpen() {
			return ErrContractConflict
		}
	}
	return nil
}

// UpdateContract merges changes into an existing contract. Moving a
// contract to an open status re-runs the room conflict check.
func (s *Service) UpdateContract(ctx context.Context, id string, contract models.Contract) error {
	uid, err := s.uid(ctx)
	if err != nil {
		return err
	}

	current, err := s.getContract(ctx, uid, id)
	if err != nil {
		return err
	}

	// Fields left empty keep their stored value. Resolving them here
	// keeps the merge write from blanking them out.
	if contract.RoomID == "" {
		contract.RoomID = current.RoomID
	}
	if contract.Status == "" {
		contract.Status = current.Status
	}
	if contract.Type == "" {
		contract.Type = current.Type
	}

	if s.cfg.SingleActiveContract() && contract.IsOpen() {
		if err := s.checkRoomFree(ctx, uid, contract.RoomID, id); err != nil {
			return err
		}
	}

	contract.ID = ""
	contract.CreatedAt = ""
	contract.UpdatedAt = nowISO()

	data, err := docstore.Encode(contract)
	if err != nil {
		return fmt.Errorf("encode contract: %w", err)
	}
	return s.store.Update(ctx, uid, docstore.CollectionContracts, id, data)
}

// TerminateContract moves a contract to terminated, closing it as of
// today unless it already carries an earlier end date.
func (s *Service) TerminateContract(ctx context.Context, id string) error {
	uid, err := s.uid(ctx)
	if err != nil {
		return err
	}

	contract, err := s.getContract(ctx, uid, id)
	if err != nil {
		return err
	}

	update := map[string]interface{}{
		"status":    string(models.ContractStatusTerminated),
		"updatedAt": nowISO(),
	}
	if contract.EndDate == "" || contract.EndDate > todayISO() {
		update["endDate"] = todayISO()
	}
	return s.store.Update(ctx, uid, docstore.CollectionContracts, id, update)
}

// RenewContract extends a contract to a new end date and reactivates it.
// Renewing is allowed from any status except terminated.
func (s *Service) RenewContract(ctx context.Context, id, newEndDate string) error {
	uid, err := s.uid(ctx)
	if err != nil {
		return err
	}

	contract, err := s.getContract(ctx, uid, id)
	if err != nil {
		return err
	}
	if contract.Status == models.ContractStatusTerminated {
		return fmt.Errorf("%w: contract %s is terminated", docstore.ErrInvalidData, id)
	}

	// The renewed contract becomes the room's open contract; make sure
	// no other one took the room in the meantime.
	if s.cfg.SingleActiveContract() && !contract.IsOpen() {
		if err := s.checkRoomFree(ctx, uid, contract.RoomID, id); err != nil {
			return err
		}
	}

	return s.store.Update(ctx, uid, docstore.CollectionContracts, id, map[string]interface{}{
		"status":    string(models.ContractStatusActive),
		"endDate":   newEndDate,
		"updatedAt": nowISO(),
	})
}

// GetContract reads one contract
func (s *Service) GetContract(ctx context.Context, id string) (*models.Contract, error) {
	uid, err := s.uid(ctx)
	if err != nil {
		return nil, err
	}
	return s.getContract(ctx, uid, id)
}

func (s *Service) getContract(ctx context.Context, uid, id string) (*models.Contract, error) {
	doc, err := s.store.Get(ctx, uid, docstore.CollectionContracts, id)
	if err != nil {
		return nil, err
	}
	var contract models.Contract
	if err := doc.DecodeInto(&contract); err != nil {
		return nil, fmt.Errorf("decode contract %s: %w", id, err)
	}
	return &contract, nil
}

// Contracts returns the cached contract list, newest first
func (s *Service) Contracts(ctx context.Context) ([]models.Contract, error) {
	_, cache, err := s.session(ctx)
	if err != nil {
		return nil, err
	}
	return decodeContracts(cache.Snapshot(docstore.CollectionContracts))
}

// ActiveContracts returns the contracts with status active, newest first
func (s *Service) ActiveContracts(ctx context.Context) ([]models.Contract, error) {
	contracts, err := s.Contracts(ctx)
	if err != nil {
		return nil, err
	}

	active := contracts[:0]
	for _, c := range contracts {
		if c.Status == models.ContractStatusActive {
			active = append(active, c)
		}
	}
	return active, nil
}

// ContractByRoom returns the open contract for a room, or ErrNotFound
func (s *Service) ContractByRoom(ctx context.Context, roomID string) (*models.Contract, error) {
	uid, err := s.uid(ctx)
	if err != nil {
		return nil, err
	}

	docs, err := s.store.Query(ctx, uid, docstore.CollectionContracts, docstore.Query{
		FilterField: "roomId",
		FilterValue: roomID,
		OrderBy:     "createdAt",
		Desc:        true,
	})
	if err != nil {
		return nil, err
	}

	for _, doc := range docs {
		var contract models.Contract
		if err := doc.DecodeInto(&contract); err != nil {
			return nil, fmt.Errorf("decode contract %s: %w", doc.ID, err)
		}
		if contract.IsOpen() {
			return &contract, nil
		}
	}
	return nil, docstore.ErrNotFound
}

func decodeContracts(docs []docstore.Document) ([]models.Contract, error) {
	contracts := make([]models.Contract, 0, len(docs))
	for _, doc := range docs {
		var contract models.Contract
		if err := doc.DecodeInto(&contract); err != nil {
			return nil, fmt.Errorf("decode contract %s: %w", doc.ID, err)
		}
		contracts = append(contracts, contract)
	}
	return contracts, nil
}

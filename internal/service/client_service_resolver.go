// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package service

import (
	"encoding/json"
	"fmt"

	"github.com/owlivion-tech/owlivion-mail-sub001/internal/logger"
	"github.com/owlivion-tech/owlivion-mail-sub001/models"
)

// resolverService is the concrete implementation of [ResolverService].
//
// Contacts carry a fixed field set, so a three-way diff against the last
// server-acknowledged copy can merge edits to disjoint fields without losing
// either side. Every other data type is opaque to the resolver and settled by
// last-write-wins on client timestamps.
type resolverService struct {
	logger *logger.Logger
}

// NewResolverService constructs a [ResolverService].
func NewResolverService(logger *logger.Logger) ResolverService {
	return &resolverService{logger: logger}
}

// Resolve implements [ResolverService].
func (s *resolverService) Resolve(input ResolutionInput) (Resolution, error) {
	if input.DataType == models.DataTypeContacts && len(input.Ancestor) > 0 {
		return s.mergeContacts(input)
	}
	return s.lastWriteWins(input), nil
}

// lastWriteWins picks the side with the later client timestamp. Equal
// timestamps keep the server copy so every device converges on the same
// winner.
func (s *resolverService) lastWriteWins(input ResolutionInput) Resolution {
	if input.LocalTimestamp.After(input.ServerTimestamp) {
		return Resolution{Choice: models.ResolutionUseLocal}
	}
	return Resolution{Choice: models.ResolutionUseServer}
}

// mergeContacts performs the field-level three-way merge. Edits to disjoint
// fields combine; the same field edited on both sides to different values
// escalates to a manual decision.
func (s *resolverService) mergeContacts(input ResolutionInput) (Resolution, error) {
	var base, local, server models.Contact

	if err := json.Unmarshal(input.Ancestor, &base); err != nil {
		return Resolution{}, fmt.Errorf("%w: decode ancestor contact %s: %w", ErrUnresolvableRecord, input.RecordID, err)
	}
	if err := json.Unmarshal(input.Local, &local); err != nil {
		return Resolution{}, fmt.Errorf("%w: decode local contact %s: %w", ErrUnresolvableRecord, input.RecordID, err)
	}
	if err := json.Unmarshal(input.Server, &server); err != nil {
		return Resolution{}, fmt.Errorf("%w: decode server contact %s: %w", ErrUnresolvableRecord, input.RecordID, err)
	}

	localChanged := local.ChangedFields(base)
	serverChanged := server.ChangedFields(base)

	for field := range localChanged {
		if !serverChanged[field] {
			continue
		}
		// Both sides touched the field; identical values are not a conflict.
		probe := base
		probe.Apply(field, local)
		theirs := base
		theirs.Apply(field, server)
		if probe != theirs {
			s.logger.Info().
				Str("func", "resolverService.mergeContacts").
				Str("record_id", input.RecordID).
				Str("field", string(field)).
				Msg("contested contact field needs a manual decision")
			return Resolution{Choice: models.ResolutionManual}, nil
		}
	}

	if len(localChanged) == 0 {
		return Resolution{Choice: models.ResolutionUseServer}, nil
	}
	if len(serverChanged) == 0 {
		return Resolution{Choice: models.ResolutionUseLocal}, nil
	}

	merged := base
	for field := range serverChanged {
		merged.Apply(field, server)
	}
	for field := range localChanged {
		merged.Apply(field, local)
	}
	merged.UpdatedAt = input.LocalTimestamp
	if input.ServerTimestamp.After(input.LocalTimestamp) {
		merged.UpdatedAt = input.ServerTimestamp
	}

	payload, err := json.Marshal(merged)
	if err != nil {
		return Resolution{}, fmt.Errorf("encode merged contact %s: %w", input.RecordID, err)
	}

	return Resolution{Choice: models.ResolutionMerged, Merged: payload}, nil
}

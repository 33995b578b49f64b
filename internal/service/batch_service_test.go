package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"ams-server/internal/dto"
	"ams-server/internal/model"
	"ams-server/internal/repository"
	"ams-server/pkg/cache"
	pkgerrors "ams-server/pkg/errors"
)

// ── 测试辅助 ──

func setupTestBatchService() (BatchService, *repository.Repository, *cache.Memory) {
	repo := newMockRepository()
	store := cache.NewMemory(time.Minute, 100, time.Now)
	return NewBatchService(repo, store, zap.NewNop()), repo, store
}

func seedBatchMembers(t *testing.T, repo *repository.Repository) (coachID, playerID string) {
	t.Helper()
	ctx := context.Background()
	coach := &model.User{AcademyID: testAcademy, Username: "coach01", Name: "王教练", Role: model.RoleCoach}
	student := &model.User{AcademyID: testAcademy, Username: "stu01", Name: "学员", Role: model.RoleStudent}
	_ = repo.User.Create(ctx, coach)
	_ = repo.User.Create(ctx, student)
	player := &model.Player{AcademyID: testAcademy, Name: "张三"}
	if err := repo.Player.Create(ctx, player); err != nil {
		t.Fatalf("创建球员失败: %v", err)
	}
	return coach.UserID, player.PlayerID
}

// ── Create 测试 ──

func TestBatchService_Create(t *testing.T) {
	svc, repo, _ := setupTestBatchService()
	coachID, playerID := seedBatchMembers(t, repo)

	resp, err := svc.Create(context.Background(), testAcademy, &dto.CreateBatchRequest{
		Name: "U12 A组", CoachIDs: []string{coachID}, PlayerIDs: []string{playerID},
	}, "admin-1")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if resp.Name != "U12 A组" || resp.Version != 1 {
		t.Errorf("期望 U12 A组 / version=1，实际 %s / %d", resp.Name, resp.Version)
	}
	if len(resp.CoachIDs) != 1 || len(resp.PlayerIDs) != 1 {
		t.Errorf("期望 1 教练 1 球员，实际 %v / %v", resp.CoachIDs, resp.PlayerIDs)
	}
}

func TestBatchService_Create_InvalidMembers(t *testing.T) {
	svc, repo, _ := setupTestBatchService()
	_, playerID := seedBatchMembers(t, repo)
	student, _ := repo.User.GetByUsername(context.Background(), "stu01")

	tests := []struct {
		name string
		req  *dto.CreateBatchRequest
		want error
	}{
		{"教练不存在", &dto.CreateBatchRequest{Name: "A", CoachIDs: []string{"ghost"}}, ErrInvalidCoach},
		{"非教练角色", &dto.CreateBatchRequest{Name: "A", CoachIDs: []string{student.UserID}}, ErrInvalidCoach},
		{"球员不存在", &dto.CreateBatchRequest{Name: "A", PlayerIDs: []string{playerID, "ghost"}}, ErrPlayerNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), testAcademy, tt.req, "admin-1")
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
		})
	}
}

// ── Update 测试 ──

func TestBatchService_Update_OptimisticLock(t *testing.T) {
	svc, repo, _ := setupTestBatchService()
	_, playerID := seedBatchMembers(t, repo)
	created, _ := svc.Create(context.Background(), testAcademy, &dto.CreateBatchRequest{Name: "U12"}, "admin-1")

	name := "U12 精英"
	players := []string{playerID}
	updated, err := svc.Update(context.Background(), testAcademy, created.ID, &dto.UpdateBatchRequest{
		Name: &name, PlayerIDs: &players, Version: 1,
	}, "admin-1")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if updated.Name != name || updated.Version != 2 || len(updated.PlayerIDs) != 1 {
		t.Errorf("期望 %s / version=2 / 1 球员，实际 %s / %d / %d", name, updated.Name, updated.Version, len(updated.PlayerIDs))
	}

	_, err = svc.Update(context.Background(), testAcademy, created.ID, &dto.UpdateBatchRequest{Name: &name, Version: 1}, "admin-1")
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("过期版本期望 ErrOptimisticLock，实际: %v", err)
	}
}

func TestBatchService_Update_InvalidatesPlayerCache(t *testing.T) {
	svc, repo, store := setupTestBatchService()
	_, playerID := seedBatchMembers(t, repo)
	created, _ := svc.Create(context.Background(), testAcademy, &dto.CreateBatchRequest{Name: "U12", PlayerIDs: []string{playerID}}, "admin-1")

	key := playerCacheKey(testAcademy, playerID)
	_ = store.Set(context.Background(), key, []byte(`{"id":"cached"}`))

	empty := []string{}
	if _, err := svc.Update(context.Background(), testAcademy, created.ID, &dto.UpdateBatchRequest{PlayerIDs: &empty, Version: 1}, "admin-1"); err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if _, ok, _ := store.Get(context.Background(), key); ok {
		t.Error("移出分组的球员缓存应失效")
	}
}

// ── Delete / ListPlayers 测试 ──

func TestBatchService_ListPlayersAndDelete(t *testing.T) {
	svc, repo, _ := setupTestBatchService()
	_, playerID := seedBatchMembers(t, repo)
	created, _ := svc.Create(context.Background(), testAcademy, &dto.CreateBatchRequest{Name: "U12", PlayerIDs: []string{playerID}}, "admin-1")

	players, err := svc.ListPlayers(context.Background(), testAcademy, created.ID)
	if err != nil {
		t.Fatalf("ListPlayers 应成功: %v", err)
	}
	if len(players) != 1 || players[0].Name != "张三" || players[0].Batches[0].ID != created.ID {
		t.Errorf("期望球员 张三 属于 %s，实际 %+v", created.ID, players)
	}

	if err := svc.Delete(context.Background(), testAcademy, created.ID, "admin-1"); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, err := svc.Get(context.Background(), testAcademy, created.ID); !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("删除后期望 ErrBatchNotFound，实际: %v", err)
	}
}

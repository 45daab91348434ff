package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jzonefm/cache"
	"jzonefm/config"
	"jzonefm/core/auth"
	"jzonefm/core/player"
	"jzonefm/core/upload"
	"jzonefm/db"
	"jzonefm/logger"
	"jzonefm/model"
	"jzonefm/repository"
	"jzonefm/storage"

	"github.com/gorilla/mux"
)

// Start initializes all collaborators and runs the HTTP server until
// an interrupt signal arrives.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.InfoLevel,
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})

	auth.Configure(cfg.JWTSecret, cfg.JWTExpiry)

	// 数据库是硬依赖
	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("[Server] 连接数据库失败", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("[Server] 初始化数据库失败", logger.ErrorField(err))
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("[Server] 连接GORM失败", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.AutoMigrateModels(&model.Comment{}); err != nil {
		logger.Fatal("[Server] 迁移评论表失败", logger.ErrorField(err))
	}

	// Redis 只承载草稿与URL缓存，连不上时功能降级
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("[Server] Redis 不可用，草稿持久化与URL缓存降级", logger.ErrorField(err))
	} else {
		defer db.CloseRedis()
	}

	// 对象存储后端
	var store storage.ObjectStore
	var localStore *storage.LocalStore
	switch cfg.StorageBackend {
	case "minio":
		minioStore, err := storage.NewMinioStore(cfg)
		if err != nil {
			logger.Fatal("[Server] 初始化 MinIO 失败", logger.ErrorField(err))
		}
		store = minioStore
	default:
		var err error
		localStore, err = storage.NewLocalStore(cfg.LocalLibraryDir, cfg.JWTSecret)
		if err != nil {
			logger.Fatal("[Server] 初始化本地音乐库失败", logger.ErrorField(err))
		}
		store = localStore
		logger.Info("[Server] 使用本地磁盘音乐库", logger.String("dir", cfg.LocalLibraryDir))
	}

	trackRepo := repository.NewMySQLTrackRepository(db.DB)
	userRepo := repository.NewMySQLUserRepository(db.DB)
	commentRepo := repository.NewGormCommentRepository(db.GormDB)

	// 播放引擎
	library := player.NewLibrary()
	queue := player.NewQueue()
	device := player.NewClockDevice()

	resolve := func(ctx context.Context, track *model.Track) (string, error) {
		if url, ok := cache.GetSignedURL(ctx, track.AudioPath); ok {
			return url, nil
		}
		url, err := store.SignedURL(ctx, track.AudioPath, cfg.SignedURLTTL)
		if err != nil {
			return "", err
		}
		cache.SetSignedURL(ctx, track.AudioPath, url, cfg.SignedURLTTL)
		return url, nil
	}

	recordPlay := func(trackID string) {
		if err := trackRepo.IncrementPlays(trackID); err != nil {
			logger.Warn("[Player] 播放计数更新失败",
				logger.String("trackId", trackID),
				logger.ErrorField(err))
		}
	}

	ctrl := player.NewController(device, library, queue, resolve, recordPlay)
	defer ctrl.Close()

	rebuild := func() {
		tracks, err := trackRepo.GetTracksVisibleTo(0)
		if err != nil {
			logger.Error("[Server] 重建曲库失败", logger.ErrorField(err))
			return
		}
		ctrl.Rebuild(tracks)
		logger.Info("[Server] 曲库已重建", logger.Int("tracks", len(tracks)))
	}
	rebuild()

	// 本地后端监听音乐库目录，文件变动后重建曲库与队列
	if localStore != nil {
		watcher, err := player.WatchLibraryDir(localStore.BaseDir(), 2*time.Second, rebuild)
		if err != nil {
			logger.Warn("[Server] 音乐库目录监听不可用", logger.ErrorField(err))
		} else {
			defer watcher.Close()
		}
	}

	uploads := upload.NewManager(store, trackRepo, cfg.DraftTTL, cfg.MaxDraftBytes, ctrl.AddTrack)

	apiHandler := NewAPIHandler(trackRepo, userRepo, commentRepo, store, localStore, ctrl, uploads, cfg)

	router := mux.NewRouter()

	// CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// 用户认证
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/me", apiHandler.AuthMiddleware(apiHandler.MeHandler)).Methods(http.MethodGet)

	// 曲库
	router.HandleFunc("/api/tracks", apiHandler.AuthMiddleware(apiHandler.GetTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteTrackHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/tracks/{id}/url", apiHandler.AuthMiddleware(apiHandler.TrackURLHandler)).Methods(http.MethodGet)

	// 评论
	router.HandleFunc("/api/tracks/{id}/comments", apiHandler.AuthMiddleware(apiHandler.GetCommentsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}/comments", apiHandler.AuthMiddleware(apiHandler.CreateCommentHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/comments/{id}/jump", apiHandler.AuthMiddleware(apiHandler.JumpToCommentHandler)).Methods(http.MethodPost)

	// 播放器
	router.HandleFunc("/api/player/play", apiHandler.AuthMiddleware(apiHandler.PlayHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/toggle", apiHandler.AuthMiddleware(apiHandler.TogglePlayHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/next", apiHandler.AuthMiddleware(apiHandler.NextHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/previous", apiHandler.AuthMiddleware(apiHandler.PreviousHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/seek", apiHandler.AuthMiddleware(apiHandler.SeekHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/volume", apiHandler.AuthMiddleware(apiHandler.VolumeHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/skin", apiHandler.AuthMiddleware(apiHandler.SkinHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/player/state", apiHandler.AuthMiddleware(apiHandler.PlayerStateHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/player/queue/{id}", apiHandler.AuthMiddleware(apiHandler.RemoveFromQueueHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/player/ws", apiHandler.PlayerWSHandler).Methods(http.MethodGet)

	// 上传草稿
	router.HandleFunc("/api/upload/draft", apiHandler.AuthMiddleware(apiHandler.GetDraftHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/upload/draft", apiHandler.AuthMiddleware(apiHandler.DiscardDraftHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/upload/draft/audio", apiHandler.AuthMiddleware(apiHandler.DraftAudioHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/upload/draft/cover", apiHandler.AuthMiddleware(apiHandler.DraftCoverHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/upload/draft/meta", apiHandler.AuthMiddleware(apiHandler.DraftMetaHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/upload/draft/trim", apiHandler.AuthMiddleware(apiHandler.DraftTrimHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/upload/draft/seek", apiHandler.AuthMiddleware(apiHandler.DraftSeekHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/upload/draft/preview", apiHandler.AuthMiddleware(apiHandler.DraftPreviewHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/upload/confirm", apiHandler.AuthMiddleware(apiHandler.ConfirmUploadHandler)).Methods(http.MethodPost)

	// 本地后端的音频回源，签名在URL里，不走登录态
	router.PathPrefix("/media/").HandlerFunc(apiHandler.MediaHandler).Methods(http.MethodGet)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("[Server] 服务启动", logger.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("[Server] 启动失败", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("[Server] 正在关闭...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("[Server] 强制关闭", logger.ErrorField(err))
		return
	}

	logger.Info("[Server] 已停止")
}

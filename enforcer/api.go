/*
 * Copyright (c) 2025 Johan Stenstam, johani@johani.org
 *
 * Read-only HTTP API over the enforcer database
 */

package enforcer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/johanix/odsdb/db"
)

type apiServer struct {
	conf     *Config
	conn     *db.Connection
	bootTime time.Time

	// a Connection is not safe for concurrent use
	mu    sync.Mutex
	pongs int
}

func WalkRoutes(router *mux.Router, address string) {
	log.Printf("Defined API endpoints for router on: %s\n", address)

	walker := func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		path, _ := route.GetPathTemplate()
		methods, _ := route.GetMethods()
		for m := range methods {
			log.Printf("%-6s %s\n", methods[m], path)
		}
		return nil
	}
	if err := router.Walk(walker); err != nil {
		log.Printf("WalkRoutes: %v", err)
	}
}

// SetupAPIRouter returns the /api/v1 router. Every request must carry the
// configured key in the X-API-Key header.
func SetupAPIRouter(conf *Config, conn *db.Connection) (*mux.Router, error) {
	apikey := conf.ApiServer.ApiKey
	if apikey == "" {
		return nil, fmt.Errorf("apiserver.apikey is not set")
	}
	if conn == nil {
		return nil, fmt.Errorf("SetupAPIRouter: no database connection")
	}
	as := &apiServer{conf: conf, conn: conn, bootTime: time.Now()}

	r := mux.NewRouter().StrictSlash(true)
	sr := r.PathPrefix("/api/v1").Headers("X-API-Key", apikey).Subrouter()

	sr.HandleFunc("/ping", as.APIping).Methods("POST")
	sr.HandleFunc("/zone", as.APIzone).Methods("POST")
	sr.HandleFunc("/keydependency", as.APIkeydependency).Methods("POST")

	return r, nil
}

// APIdispatcher serves router on all configured addresses until ctx is
// cancelled.
func APIdispatcher(ctx context.Context, conf *Config, router *mux.Router) error {
	addresses := conf.ApiServer.Addresses
	if len(addresses) == 0 {
		return fmt.Errorf("APIdispatcher: no API server addresses configured")
	}

	var wg sync.WaitGroup
	errch := make(chan error, len(addresses))
	var servers []*http.Server
	for _, address := range addresses {
		WalkRoutes(router, address)
		srv := &http.Server{
			Addr:              address,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		servers = append(servers, srv)
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			log.Printf("Starting API dispatcher on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errch <- fmt.Errorf("API dispatcher on %s: %v", srv.Addr, err)
			}
		}(srv)
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-errch:
	}
	for _, srv := range servers {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		srv.Shutdown(sctx)
		cancel()
	}
	wg.Wait()
	return err
}

func sendJSON(w http.ResponseWriter, resp interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("API: error encoding response: %v", err)
	}
}

func (as *apiServer) APIping(w http.ResponseWriter, r *http.Request) {
	log.Printf("APIping: received /ping request from %s.\n", r.RemoteAddr)

	var pp PingPost
	if err := json.NewDecoder(r.Body).Decode(&pp); err != nil {
		log.Println("APIping: error decoding ping post:", err)
	}

	as.mu.Lock()
	defer as.mu.Unlock()
	as.pongs++

	hostname, _ := os.Hostname()
	resp := PingResponse{
		Time:       time.Now(),
		BootTime:   as.bootTime,
		Daemon:     Globals.App.Name,
		Version:    Globals.App.Version,
		ServerHost: hostname,
		Client:     r.RemoteAddr,
		Backend:    as.conn.BackendName(),
		Msg:        fmt.Sprintf("pong from %s @ %s", Globals.App.Name, hostname),
		Pings:      pp.Pings + 1,
		Pongs:      as.pongs,
	}
	v, err := CheckDatabaseVersion(r.Context(), as.conn)
	resp.DbVersion = v
	if err != nil {
		resp.Error = true
		resp.ErrorMsg = err.Error()
	}
	sendJSON(w, resp)
}

func (as *apiServer) APIzone(w http.ResponseWriter, r *http.Request) {
	var zp ZonePost
	resp := ZoneResponse{
		AppName: Globals.App.Name,
		Time:    time.Now(),
	}
	defer func() {
		sendJSON(w, resp)
	}()

	if err := json.NewDecoder(r.Body).Decode(&zp); err != nil {
		log.Println("APIzone: error decoding zone post:", err)
		resp.Error = true
		resp.ErrorMsg = fmt.Sprintf("error decoding request: %v", err)
		return
	}
	log.Printf("API: received /zone request (cmd: %s) from %s.\n", zp.Command, r.RemoteAddr)

	as.mu.Lock()
	defer as.mu.Unlock()
	ctx := r.Context()

	var err error
	switch zp.Command {
	case "list":
		var zl *ZoneList
		zl, err = NewZoneList(as.conn)
		if err == nil {
			err = zl.GetAll(ctx)
		}
		if err == nil {
			resp.Zones, err = zl.Zones()
		}
		resp.Count = uint32(len(resp.Zones))

	case "show":
		var z *Zone
		z, err = NewZone(as.conn)
		if err == nil {
			err = z.GetByName(ctx, zp.Zone)
		}
		if err == nil {
			resp.Zone = z
		}

	case "count":
		resp.Count, err = CountZones(ctx, as.conn, nil)
		resp.Msg = fmt.Sprintf("%d zones", resp.Count)

	default:
		err = fmt.Errorf("unknown zone command: %q", zp.Command)
	}

	if err != nil {
		log.Printf("APIzone: %s: %v", zp.Command, err)
		resp.Error = true
		resp.ErrorMsg = err.Error()
	}
}

func (as *apiServer) APIkeydependency(w http.ResponseWriter, r *http.Request) {
	var kp KeyDependencyPost
	resp := KeyDependencyResponse{
		AppName: Globals.App.Name,
		Time:    time.Now(),
	}
	defer func() {
		sendJSON(w, resp)
	}()

	if err := json.NewDecoder(r.Body).Decode(&kp); err != nil {
		log.Println("APIkeydependency: error decoding post:", err)
		resp.Error = true
		resp.ErrorMsg = fmt.Sprintf("error decoding request: %v", err)
		return
	}
	log.Printf("API: received /keydependency request (cmd: %s) from %s.\n", kp.Command, r.RemoteAddr)

	as.mu.Lock()
	defer as.mu.Unlock()
	ctx := r.Context()

	var err error
	switch kp.Command {
	case "list":
		var kdl *KeyDependencyList
		kdl, err = NewKeyDependencyList(as.conn)
		if err != nil {
			break
		}
		switch {
		case kp.Zone != "":
			err = kdl.GetByZoneName(ctx, kp.Zone)
		case kp.ZoneID != 0:
			err = kdl.GetByZoneID(ctx, kp.ZoneID)
		default:
			err = kdl.GetAll(ctx)
		}
		if err == nil {
			resp.KeyDependencies, err = kdl.KeyDependencies()
		}
		resp.Msg = fmt.Sprintf("%d key dependencies", len(resp.KeyDependencies))

	default:
		err = fmt.Errorf("unknown keydependency command: %q", kp.Command)
	}

	if err != nil {
		log.Printf("APIkeydependency: %s: %v", kp.Command, err)
		resp.Error = true
		resp.ErrorMsg = err.Error()
	}
}

package inventory

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cablesage/cablesage/internal/macaddr"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client talks to the inventory's REST API using a bearer-token
// session, following pagination on every list call.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	token      string
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Client from cfg. baseURL is taken from cfg.URL with
// any trailing slash trimmed.
func New(cfg Config, logger *zap.Logger) *Client {
	transport := http.DefaultTransport
	if !cfg.VerifySSL {
		transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec
	}

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 10
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		token:      cfg.Token,
		cfg:        cfg,
		logger:     logger,
	}
}

// doJSON issues an HTTP request against path (relative to baseURL, or
// an absolute URL for pagination's Next links), decoding a JSON
// response body into result when non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("inventory: rate limiter: %w", err)
	}

	fullURL := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		fullURL = c.baseURL + path
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("inventory: encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("inventory: building request %s %s: %w", method, fullURL, err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inventory: %s %s: %w", method, fullURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("inventory: reading response from %s %s: %w", method, fullURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("inventory: %s %s: status %d: %s", method, fullURL, resp.StatusCode, string(respBody))
	}

	if result == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("inventory: decoding response from %s %s: %w", method, fullURL, err)
	}
	return nil
}

// listAll follows listResponse.Next until exhausted, accumulating every
// page's Results. This restores the original client's pagination
// behavior, which the teacher's netbox.Client did not implement.
func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var out []T
	next := path
	for next != "" {
		var page listResponse[T]
		if err := c.doJSON(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Results...)
		next = page.Next
	}
	return out, nil
}

// ListOOBInterfaces fetches every device with an assigned OOB IP,
// resolves that IP to its assigned interface, and drops devices whose
// OOB interface has no MAC or no interface assignment (logging a
// warning for each drop).
func (c *Client) ListOOBInterfaces(ctx context.Context) ([]OOBInterface, error) {
	devices, err := listAll[nbDevice](ctx, c, "/api/dcim/devices/?has_oob_ip=true")
	if err != nil {
		return nil, fmt.Errorf("inventory: list_oob_interfaces: listing devices: %w", err)
	}

	var out []OOBInterface
	for _, d := range devices {
		if d.OOBIP == nil {
			continue
		}

		var ip nbIPAddress
		if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/ipam/ip-addresses/%d/", d.OOBIP.ID), nil, &ip); err != nil {
			c.logger.Warn("inventory: failed to fetch oob ip", zap.String("device", d.Name), zap.Error(err))
			continue
		}

		if ip.AssignedObjectType != "dcim.interface" || ip.AssignedObjectID == 0 {
			c.logger.Warn("inventory: oob ip has no assigned interface", zap.String("device", d.Name))
			continue
		}

		var iface nbInterface
		if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/dcim/interfaces/%d/", ip.AssignedObjectID), nil, &iface); err != nil {
			c.logger.Warn("inventory: failed to fetch oob interface", zap.String("device", d.Name), zap.Error(err))
			continue
		}

		if iface.MACAddress == "" {
			c.logger.Warn("inventory: oob interface has no mac address", zap.String("device", d.Name), zap.String("interface", iface.Name))
			continue
		}

		mac, err := macaddr.Normalize(iface.MACAddress)
		if err != nil {
			c.logger.Warn("inventory: oob interface has malformed mac", zap.String("device", d.Name), zap.Error(err))
			continue
		}

		oob := OOBInterface{
			DeviceID:    strconv.Itoa(d.ID),
			DeviceName:  d.Name,
			InterfaceID: strconv.Itoa(iface.ID),
			Name:        iface.Name,
			MAC:         mac,
			HasCable:    iface.Cable != nil,
		}
		if d.Site != nil {
			oob.SiteSlug = d.Site.Slug
		}
		if d.Rack != nil {
			oob.RackLabel = d.Rack.Name
		}
		if oob.HasCable && len(iface.LinkPeers) > 0 {
			peer := iface.LinkPeers[0]
			oob.PeerPort = peer.Name
			if peer.Device != nil {
				oob.PeerSwitch = peer.Device.Name
			}
		}
		out = append(out, oob)
	}
	return out, nil
}

// ListSwitches lists switches for the given site slugs, unioning
// per-site results. If siteSlugs is empty, it falls back to
// cfg.SwitchesRole; if that is also unset, it logs a warning and
// returns every device, per the original implementation's fallback.
func (c *Client) ListSwitches(ctx context.Context, siteSlugs []string) ([]Switch, error) {
	var devices []nbDevice

	switch {
	case len(siteSlugs) > 0:
		seen := make(map[int]struct{})
		for _, site := range siteSlugs {
			path := "/api/dcim/devices/?site__slug=" + url.QueryEscape(site)
			if c.cfg.SwitchesRole != "" {
				path += "&role=" + url.QueryEscape(c.cfg.SwitchesRole)
			}
			page, err := listAll[nbDevice](ctx, c, path)
			if err != nil {
				return nil, fmt.Errorf("inventory: list_switches: site %q: %w", site, err)
			}
			for _, d := range page {
				if _, ok := seen[d.ID]; ok {
					continue
				}
				seen[d.ID] = struct{}{}
				devices = append(devices, d)
			}
		}
	case c.cfg.SwitchesRole != "":
		page, err := listAll[nbDevice](ctx, c, "/api/dcim/devices/?role="+url.QueryEscape(c.cfg.SwitchesRole))
		if err != nil {
			return nil, fmt.Errorf("inventory: list_switches: role %q: %w", c.cfg.SwitchesRole, err)
		}
		devices = page
	default:
		c.logger.Warn("inventory: no site or role filter configured for switch enumeration; returning all devices")
		page, err := listAll[nbDevice](ctx, c, "/api/dcim/devices/")
		if err != nil {
			return nil, fmt.Errorf("inventory: list_switches: unfiltered: %w", err)
		}
		devices = page
	}

	out := make([]Switch, 0, len(devices))
	for _, d := range devices {
		sw := Switch{ID: strconv.Itoa(d.ID), Name: d.Name}
		if d.Site != nil {
			sw.SiteSlug = d.Site.Slug
		}
		if d.PrimaryIP != nil {
			sw.MgmtIP = stripCIDR(d.PrimaryIP.Address)
		}
		out = append(out, sw)
	}
	return out, nil
}

func stripCIDR(addr string) string {
	if i := strings.IndexByte(addr, '/'); i >= 0 {
		return addr[:i]
	}
	return addr
}

// GetSwitchPort resolves a switch port by exact name match.
func (c *Client) GetSwitchPort(ctx context.Context, switchID, portName string) (*SwitchPort, error) {
	path := fmt.Sprintf("/api/dcim/interfaces/?device_id=%s&name=%s", switchID, url.QueryEscape(portName))
	ifaces, err := listAll[nbInterface](ctx, c, path)
	if err != nil {
		return nil, fmt.Errorf("inventory: get_switch_port(%s, %s): %w", switchID, portName, err)
	}
	if len(ifaces) == 0 {
		return nil, nil
	}
	return toSwitchPort(switchID, ifaces[0]), nil
}

// GetSwitchPortByIfIndex resolves a switch port via the custom field
// if_index, the same implementation-defined lookup the original source
// uses. Returns nil, nil if no interface declares that ifindex.
func (c *Client) GetSwitchPortByIfIndex(ctx context.Context, switchID string, ifIndex int) (*SwitchPort, error) {
	path := fmt.Sprintf("/api/dcim/interfaces/?device_id=%s&cf_if_index=%d", switchID, ifIndex)
	ifaces, err := listAll[nbInterface](ctx, c, path)
	if err != nil {
		return nil, fmt.Errorf("inventory: get_switch_port_by_ifindex(%s, %d): %w", switchID, ifIndex, err)
	}
	if len(ifaces) == 0 {
		return nil, nil
	}
	return toSwitchPort(switchID, ifaces[0]), nil
}

func toSwitchPort(switchID string, iface nbInterface) *SwitchPort {
	return &SwitchPort{
		ID:       strconv.Itoa(iface.ID),
		Name:     iface.Name,
		SwitchID: switchID,
		HasCable: iface.Cable != nil,
		MgmtOnly: iface.MgmtOnly,
	}
}

// InterfaceHasCable reports whether the interface identified by portID
// already has a cable attached.
func (c *Client) InterfaceHasCable(ctx context.Context, portID string) (bool, error) {
	var iface nbInterface
	if err := c.doJSON(ctx, http.MethodGet, "/api/dcim/interfaces/"+portID+"/", nil, &iface); err != nil {
		return false, fmt.Errorf("inventory: interface_has_cable(%s): %w", portID, err)
	}
	return iface.Cable != nil, nil
}

// CreateCable creates a cable between server interface aID and switch
// interface bID. In dry-run mode it logs the intent and returns nil,
// nil without calling the API.
func (c *Client) CreateCable(ctx context.Context, aID, bID string, vlan *int, label string, now time.Time) (*CableRecord, error) {
	desc := cableDescription(vlan, now)

	if c.cfg.DryRun {
		c.logger.Info("inventory: dry-run, not creating cable",
			zap.String("a_interface", aID), zap.String("b_interface", bID), zap.String("description", desc))
		return nil, nil
	}

	aIDInt, err := strconv.Atoi(aID)
	if err != nil {
		return nil, fmt.Errorf("inventory: create_cable: invalid a interface id %q: %w", aID, err)
	}
	bIDInt, err := strconv.Atoi(bID)
	if err != nil {
		return nil, fmt.Errorf("inventory: create_cable: invalid b interface id %q: %w", bID, err)
	}

	status := c.cfg.CableStatus
	if status == "" {
		status = "planned"
	}

	reqBody := nbCableCreateRequest{
		ATerminations: []nbTermination{{ObjectType: "dcim.interface", ObjectID: aIDInt}},
		BTerminations: []nbTermination{{ObjectType: "dcim.interface", ObjectID: bIDInt}},
		Status:        status,
		Description:   desc,
		Label:         label,
	}

	var cable nbCable
	if err := c.doJSON(ctx, http.MethodPost, "/api/dcim/cables/", reqBody, &cable); err != nil {
		c.logger.Error("inventory: create_cable failed",
			zap.String("a_interface", aID), zap.String("b_interface", bID), zap.Error(err))
		return nil, fmt.Errorf("inventory: create_cable(%s, %s): %w", aID, bID, err)
	}

	rec := &CableRecord{ID: strconv.Itoa(cable.ID), Description: cable.Description, Status: status}
	return rec, nil
}

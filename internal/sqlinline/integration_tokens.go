package sqlinline

// Provider API keys read at startup by cmd/api and written by cmd/apikey.

const QSelectIntegrationToken = `--sql f7752f88-5fe2-4f47-954a-e8338fe5a2d1
select token
from integration_tokens
where provider = lower($1::text)
  and btrim(token) <> ''
limit 1;
`

const QUpsertIntegrationToken = `--sql 31d8f55f-d45d-4efd-b052-050c7a39016b
insert into integration_tokens (id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid(), lower($1::text), btrim($2::text), coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`

const QListIntegrationProviders = `--sql f4e51620-d079-43f3-9088-826f63bcd547
select provider, coalesce(properties->>'fingerprint', ''), updated_at
from integration_tokens
where btrim(token) <> ''
order by provider;
`
